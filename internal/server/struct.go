package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/chat"
	"github.com/54b3r/kscan/internal/search"
	"github.com/54b3r/kscan/internal/store"
	"github.com/54b3r/kscan/internal/webui"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// cover a full synthesis call.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on POST
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// The built-in web shell accepts it as the HTTP Basic password.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// StaticDir, when set, is served at / with a fallback to index.html.
	// When empty, / redirects to the built-in web shell.
	StaticDir string
	// CORSOrigins lists the origins allowed to call /api/* cross-origin.
	// Empty means same-origin only.
	CORSOrigins []string
	// SessionIdle is how long an unused web shell session is kept.
	SessionIdle time.Duration
	// MetricsRegistry receives the server's metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Deps are the upstreams the server forwards to.
type Deps struct {
	// Embedder serves POST /api/get-embedding.
	Embedder api.Embedder
	// Searcher serves POST /api/search-documents.
	Searcher api.Searcher
	// Synthesizer serves POST /api/generate-synthesis.
	Synthesizer api.Synthesizer
	// Bibliographer serves POST /api/bibliography. Nil answers 501.
	Bibliographer api.Bibliographer
	// Scans backs GET /api/scans*. Nil answers 501.
	Scans store.ScanStore
	// Thresholds are the relevance buckets used by the web shell.
	Thresholds search.Thresholds
}

// Server is the kscan HTTP server: the API proxy, the web shell and the
// operational endpoints.
type Server struct {
	// embedder, searcher and synth are the metered upstreams.
	embedder api.Embedder
	searcher api.Searcher
	synth    api.Synthesizer
	// bib is nil unless local synthesis is configured.
	bib api.Bibliographer
	// scans is nil when persistence is disabled.
	scans store.ScanStore
	// search runs the embed-then-search pipeline for the web shell.
	search *search.Service
	// sessions holds web shell conversations.
	sessions *chat.Manager
	// ui renders the web shell.
	ui *webui.UI
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors for this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}
