package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/kscan/internal/embedder"
	"github.com/54b3r/kscan/internal/index"
	"github.com/54b3r/kscan/internal/logging"
	"github.com/54b3r/kscan/internal/search"
	"github.com/54b3r/kscan/internal/server"
	"github.com/54b3r/kscan/internal/store"
	"github.com/54b3r/kscan/internal/synthesis"
	"github.com/54b3r/kscan/internal/tracing"
)

// NewServeCmd constructs the `kscan serve` command, which starts the API
// proxy and the web chat shell.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the kscan HTTP server and web chat shell",
		Long: `Start the kscan HTTP server.

The server forwards embedding, search and synthesis calls to the configured
upstreams so their keys never reach a browser, stores generated knowledge
scans, and serves the web chat shell at /chat/ (or a compiled UI bundle
from KSCAN_STATIC_DIR).

Examples:
  kscan serve
  kscan serve --port 9090
  SEARCH_BACKEND=qdrant SYNTHESIS_MODE=local kscan serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.FromContext(ctx)

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: embedder: %w", err)
			}

			idx, err := index.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: index: %w", err)
			}
			defer func() { _ = idx.Close() }()

			// Tracing only sees model calls made by local synthesis.
			flush, ok := tracing.Setup(tracing.ConfigFromEnv())
			defer flush()
			if ok {
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY or LANGFUSE_SECRET_KEY not set"))
			}

			synth, err := synthesis.NewFromEnv(ctx, idx)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			log.Info("synthesis initialised", slog.String("mode", synth.Mode))

			th, err := search.ThresholdsFromEnv()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			deps := server.Deps{
				Embedder:      emb,
				Searcher:      idx,
				Synthesizer:   synth.Synthesizer,
				Bibliographer: synth.Bibliographer,
				Thresholds:    th,
			}
			pingers := []server.Pinger{server.NewDependencyPinger("index", idx)}

			scans, err := store.OpenFromEnv()
			switch {
			case err != nil:
				log.Warn("scans: failed to open store, disabling", slog.Any("error", err))
			case scans == nil:
				log.Info("scans: disabled via KSCAN_SCAN_DB=disabled")
			default:
				defer func() { _ = scans.Close() }()
				deps.Scans = scans
				// A locally generated scan that cannot be saved is an error;
				// a remote one is still returned to the caller.
				deps.Synthesizer = synthesis.NewRecorder(synth.Synthesizer, scans, synth.Mode == synthesis.ModeLocal)
				pingers = append(pingers, server.NewDependencyPinger("store", scans))
				log.Info("scans: store opened")
			}

			srv, err := server.New(deps, &server.Config{
				Host:        host,
				Port:        port,
				Logger:      log,
				Pingers:     pingers,
				APIKey:      os.Getenv("KSCAN_API_KEY"),
				StaticDir:   os.Getenv("KSCAN_STATIC_DIR"),
				CORSOrigins: splitList(os.Getenv("KSCAN_CORS_ORIGINS")),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", envOr("KSCAN_HOST", "127.0.0.1"), "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", envInt("KSCAN_PORT", 8080), "TCP port to listen on")

	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}
