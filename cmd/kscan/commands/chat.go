package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/kscan/internal/logging"
	"github.com/54b3r/kscan/internal/tui"
)

// NewChatCmd constructs the `kscan chat` command, the terminal version of
// the web chat shell.
func NewChatCmd() *cobra.Command {
	var style string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the terminal chat shell against a running kscan server",
		Long: `Open a full-screen chat shell: ask a question, tick the documents that
matter and generate a knowledge scan, all through a running kscan server.

Keys: enter search, ↑/↓ move, space select, g generate, n new scan, q quit.

Examples:
  kscan chat
  kscan chat --style light`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newClient()
			svc, err := newSearchService(client)
			if err != nil {
				return err
			}

			// Log lines would corrupt the alternate screen.
			ctx := logging.WithLogger(cmd.Context(), logging.Discard())
			return tui.Run(ctx, svc, client, tui.Options{GlamourStyle: style})
		},
	}

	cmd.Flags().StringVar(&style, "style", "", "Markdown style: dark, light or notty (default: detect)")

	return cmd
}
