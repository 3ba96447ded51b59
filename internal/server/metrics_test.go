package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/54b3r/kscan/internal/api"
)

// newTestMetrics registers server metrics in a fresh registry so tests do
// not pollute prometheus.DefaultRegisterer.
func newTestMetrics(t *testing.T, sessions int) (*serverMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return newServerMetrics(reg, func() int { return sessions }), reg
}

// metricValue reads the current value of a single counter or gauge.
func metricValue(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if pb.Counter != nil {
		return pb.GetCounter().GetValue()
	}
	return pb.GetGauge().GetValue()
}

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	_, reg := newTestMetrics(t, 0)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_UpstreamOutcomes(t *testing.T) {
	t.Parallel()
	m, _ := newTestMetrics(t, 0)

	e := meteredEmbedder{next: &fakeEmbedder{}, m: m}
	if _, err := e.Embed(context.Background(), &api.EmbeddingRequest{Input: "q"}); err != nil {
		t.Fatalf("embed: %v", err)
	}
	failing := meteredEmbedder{next: &fakeEmbedder{err: &api.StatusError{Service: "embedding", Code: 429}}, m: m}
	_, _ = failing.Embed(context.Background(), &api.EmbeddingRequest{Input: "q"})

	if got := metricValue(t, m.upstreamRequestsTotal.WithLabelValues(serviceEmbedding, "ok")); got != 1 {
		t.Errorf("ok: want 1, got %v", got)
	}
	if got := metricValue(t, m.upstreamRequestsTotal.WithLabelValues(serviceEmbedding, "upstream_error")); got != 1 {
		t.Errorf("upstream_error: want 1, got %v", got)
	}
}

func Test_Metrics_SynthesisDocuments(t *testing.T) {
	t.Parallel()
	m, reg := newTestMetrics(t, 0)

	s := meteredSynthesizer{next: &fakeSynth{}, m: m}
	if _, err := s.Synthesize(context.Background(), &api.SynthesisRequest{Query: "q", Documents: []string{"1", "2", "3"}}); err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "kscan_synthesis_documents" {
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 1 || h.GetSampleSum() != 3 {
				t.Errorf("want one sample of 3, got count=%d sum=%v", h.GetSampleCount(), h.GetSampleSum())
			}
			return
		}
	}
	t.Error("kscan_synthesis_documents not found in gathered metrics")
}

func Test_Metrics_SessionsGauge(t *testing.T) {
	t.Parallel()
	m, _ := newTestMetrics(t, 3)

	if got := metricValue(t, m.chatSessions); got != 3 {
		t.Errorf("want sessions=3, got %v", got)
	}
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&api.ValidationError{}, "invalid"},
		{&api.StatusError{Code: 500}, "upstream_error"},
		{context.DeadlineExceeded, "canceled"},
		{errors.New("dial tcp: refused"), "error"},
	}
	for _, tc := range cases {
		if got := outcome(tc.err); got != tc.want {
			t.Errorf("outcome(%v): want %q, got %q", tc.err, tc.want, got)
		}
	}
}
