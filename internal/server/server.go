// Package server implements the kscan HTTP server. It forwards the three
// upstream calls (embedding, vector search, synthesis) so that credentials
// stay server-side, serves the browser UI, and exposes persisted scans,
// health, readiness and metrics.
// The server is started by the `kscan serve` CLI command.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/kscan/internal/chat"
	"github.com/54b3r/kscan/internal/logging"
	"github.com/54b3r/kscan/internal/search"
	"github.com/54b3r/kscan/internal/webui"
)

// chatBase is where the built-in web shell is mounted.
const chatBase = "/chat"

// New constructs a Server from the provided upstreams and config.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Embedder == nil || deps.Searcher == nil || deps.Synthesizer == nil {
		return nil, fmt.Errorf("server: embedder, searcher and synthesizer are required")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Synthesis fans out to one completion per PDF and can take minutes.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if deps.Thresholds == (search.Thresholds{}) {
		deps.Thresholds = search.DefaultThresholds()
	}

	ui, err := webui.New(chatBase)
	if err != nil {
		return nil, err
	}

	s := &Server{
		bib:      deps.Bibliographer,
		scans:    deps.Scans,
		ui:       ui,
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		sessions: chat.NewManager(cfg.SessionIdle),
	}
	s.metrics = newServerMetrics(cfg.MetricsRegistry, s.sessions.Len)
	s.embedder = meteredEmbedder{next: deps.Embedder, m: s.metrics}
	s.searcher = meteredSearcher{next: deps.Searcher, m: s.metrics}
	s.synth = meteredSynthesizer{next: deps.Synthesizer, m: s.metrics}
	s.search = search.NewService(s.embedder, s.searcher, search.WithThresholds(deps.Thresholds))

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stopRL

	if cfg.APIKey == "" {
		s.log.Warn("server: KSCAN_API_KEY not set, /api routes are unauthenticated")
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(rl),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// routes builds the handler tree. Health, readiness and metrics are never
// authenticated; everything else under /api is.
func (s *Server) routes(rl *rateLimiter) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/get-embedding", s.handleEmbedding)
	api.HandleFunc("POST /api/search-documents", s.handleSearch)
	api.HandleFunc("POST /api/generate-synthesis", s.handleSynthesis)
	api.HandleFunc("POST /api/bibliography", s.handleBibliography)
	api.HandleFunc("GET /api/scans", s.handleScans)
	api.HandleFunc("GET /api/scans/{id}", s.handleScan)
	api.HandleFunc("GET /api/scans/{id}/markdown", s.handleScanMarkdown)
	api.HandleFunc("/api/", s.handleAPINotFound)

	corsOpts := cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After", "X-Request-ID"},
		MaxAge:         300,
	}
	if len(s.cfg.CORSOrigins) == 0 {
		// An empty list means "any origin" to the cors package.
		corsOpts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	corsMW := cors.Handler(corsOpts)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("/api/", corsMW(authMiddleware(s.cfg.APIKey, rl.middleware(api))))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	shell := http.NewServeMux()
	shell.HandleFunc("GET "+chatBase+"/{$}", s.handleChatPage)
	shell.HandleFunc("POST "+chatBase+"/search", s.handleChatSearch)
	shell.HandleFunc("POST "+chatBase+"/generate", s.handleChatGenerate)
	shell.HandleFunc("POST "+chatBase+"/new", s.handleChatNew)
	shell.Handle("GET "+chatBase+"/static/", http.StripPrefix(chatBase+"/static/", webui.Static()))
	mux.Handle(chatBase+"/", basicAuthMiddleware(s.cfg.APIKey, rl.middleware(shell)))

	if s.cfg.StaticDir != "" {
		mux.Handle("/", spaHandler(s.cfg.StaticDir))
	} else {
		mux.Handle("GET /{$}", http.RedirectHandler(chatBase+"/", http.StatusFound))
	}

	return requestLogger(s.log, s.metrics, mux)
}

// Handler returns the root handler. It is exposed for tests and for
// embedding the server in another mux.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()
	defer s.sessions.Stop()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening",
			slog.String("addr", "http://"+s.httpServer.Addr),
			slog.Bool("auth", s.cfg.APIKey != ""),
			slog.String("static_dir", s.cfg.StaticDir),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.log.Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// Close releases background resources without serving. Start calls it
// implicitly; tests that never call Start must call Close.
func (s *Server) Close() {
	s.stopRL()
	s.sessions.Stop()
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
