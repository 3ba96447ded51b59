// Package server: metrics.go registers all Prometheus metrics for the HTTP
// server and the metered upstream wrappers used by handlers and the web shell.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/kscan/internal/api"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// Upstream service label values.
const (
	serviceEmbedding = "embedding"
	serviceSearch    = "search"
	serviceSynthesis = "synthesis"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// upstreamRequestsTotal counts forwarded calls, partitioned by service
	// and outcome: "ok", "upstream_error", "invalid", "canceled" or "error".
	upstreamRequestsTotal *prometheus.CounterVec

	// upstreamDurationSeconds records the latency of each forwarded call.
	upstreamDurationSeconds *prometheus.HistogramVec

	// synthesisDocuments records how many documents each synthesis covered.
	synthesisDocuments prometheus.Histogram

	// chatSessions is the number of live web shell sessions.
	chatSessions prometheus.GaugeFunc

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, path pattern, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default,
// which keeps unit tests hermetic. sessions reports the live session count.
func newServerMetrics(reg prometheus.Registerer, sessions func() int) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		upstreamRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kscan",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of forwarded upstream calls, partitioned by service and outcome.",
		}, []string{"service", "outcome"}),

		upstreamDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kscan",
			Subsystem: "upstream",
			Name:      "duration_seconds",
			Help:      "Latency of forwarded upstream calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 180},
		}, []string{"service"}),

		synthesisDocuments: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kscan",
			Subsystem: "synthesis",
			Name:      "documents",
			Help:      "Number of selected documents per synthesis request.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 20},
		}),

		chatSessions: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "kscan",
			Subsystem: "chat",
			Name:      "sessions",
			Help:      "Number of live web shell sessions.",
		}, func() float64 { return float64(sessions()) }),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kscan",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kscan",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// observe records one upstream call.
func (m *serverMetrics) observe(service string, start time.Time, err error) {
	m.upstreamRequestsTotal.WithLabelValues(service, outcome(err)).Inc()
	m.upstreamDurationSeconds.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

// outcome classifies err for the upstream counter.
func outcome(err error) string {
	var verr *api.ValidationError
	var serr *api.StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "invalid"
	case errors.As(err, &serr):
		return "upstream_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

type meteredEmbedder struct {
	next api.Embedder
	m    *serverMetrics
}

func (e meteredEmbedder) Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error) {
	start := time.Now()
	resp, err := e.next.Embed(ctx, req)
	e.m.observe(serviceEmbedding, start, err)
	return resp, err
}

type meteredSearcher struct {
	next api.Searcher
	m    *serverMetrics
}

func (s meteredSearcher) Search(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
	start := time.Now()
	resp, err := s.next.Search(ctx, req)
	s.m.observe(serviceSearch, start, err)
	return resp, err
}

type meteredSynthesizer struct {
	next api.Synthesizer
	m    *serverMetrics
}

func (s meteredSynthesizer) Synthesize(ctx context.Context, req *api.SynthesisRequest) (*api.KnowledgeScan, error) {
	start := time.Now()
	scan, err := s.next.Synthesize(ctx, req)
	s.m.observe(serviceSynthesis, start, err)
	if err == nil {
		s.m.synthesisDocuments.Observe(float64(len(req.Documents)))
	}
	return scan, err
}
