// Package commands defines all Cobra CLI commands for the kscan binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/kscan/internal/audit"
	"github.com/54b3r/kscan/internal/config"
	"github.com/54b3r/kscan/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// serverURL holds the --server flag used by the client commands.
var serverURL string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kscan",
		Short: "kscan: search a document collection and build knowledge scans",
		Long: `kscan fronts an embedding service, a vector search index and a
knowledge scan synthesis service.

'kscan serve' runs the HTTP proxy and the built-in web chat shell.
'kscan search', 'kscan chat' and 'kscan scans' talk to a running server.

Configuration comes from the environment, a .env file in the working
directory and an optional YAML file (~/.kscan/config.yaml). Environment
variables always win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			// LOG_LEVEL / LOG_FORMAT may have come from the file.
			log = logging.New()
			audit.LogCommandStart(log, cmd.Name(), path)

			cmd.SetContext(logging.WithLogger(cmd.Context(), log))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.kscan/config.yaml)")
	root.PersistentFlags().StringVar(&serverURL, "server", "", "kscan server URL for client commands (default: $KSCAN_URL or http://127.0.0.1:8080)")

	root.AddCommand(
		NewServeCmd(),
		NewSearchCmd(),
		NewChatCmd(),
		NewScansCmd(),
		NewVersionCmd(),
	)

	return root
}
