package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── validation ───────────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      any
		wantErr bool
		field   string
	}{
		{"embedding ok", &EmbeddingRequest{Input: "rivers"}, false, ""},
		{"embedding empty", &EmbeddingRequest{}, true, "EmbeddingRequest.Input"},
		{"synthesis ok", &SynthesisRequest{Query: "q", Documents: []string{"a"}}, false, ""},
		{"synthesis no docs", &SynthesisRequest{Query: "q"}, true, "SynthesisRequest.Documents"},
		{"synthesis empty id", &SynthesisRequest{Query: "q", Documents: []string{""}}, true, "SynthesisRequest.Documents[0]"},
		{"synthesis no query", &SynthesisRequest{Documents: []string{"a"}}, true, "SynthesisRequest.Query"},
		{"search text only", &SearchRequest{Search: "q"}, false, ""},
		{"search vector only", &SearchRequest{VectorQueries: []VectorQuery{{Kind: "vector", Vector: []float32{1}, K: 5}}}, false, ""},
		{"search nothing", &SearchRequest{}, true, "SearchRequest.Search"},
		{"search empty vector", &SearchRequest{Search: "q", VectorQueries: []VectorQuery{{Kind: "vector"}}}, true, "SearchRequest.VectorQueries[0].Vector"},
		{"search bad kind", &SearchRequest{Search: "q", VectorQueries: []VectorQuery{{Kind: "text", Vector: []float32{1}}}}, true, "SearchRequest.VectorQueries[0].Kind"},
		{"bibliography empty", &BibliographyRequest{}, true, "BibliographyRequest.Documents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.in)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestValidationError_MessageStable(t *testing.T) {
	t.Parallel()
	err := &ValidationError{Fields: map[string]string{"b": "b is required", "a": "a is required"}}
	assert.Equal(t, "validation failed: a is required; b is required", err.Error())
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	err := NewStatusError("search", 403, []byte("  forbidden \n"))
	assert.Equal(t, "search: upstream returned HTTP 403: forbidden", err.Error())

	long := NewStatusError("embedding", 500, []byte(strings.Repeat("x", 2000)))
	assert.LessOrEqual(t, len(long.Body), maxErrorBody+3)

	empty := NewStatusError("synthesis", 502, nil)
	assert.Equal(t, "synthesis: upstream returned HTTP 502", empty.Error())
}

func TestEmbeddingResponse_First(t *testing.T) {
	t.Parallel()

	var nilResp *EmbeddingResponse
	_, ok := nilResp.First()
	assert.False(t, ok)

	_, ok = (&EmbeddingResponse{Data: []EmbeddingData{{}}}).First()
	assert.False(t, ok)

	vec, ok := (&EmbeddingResponse{Data: []EmbeddingData{{Embedding: []float32{0.5}}}}).First()
	assert.True(t, ok)
	assert.Equal(t, []float32{0.5}, vec)
}

func TestSearchHit_ScoreField(t *testing.T) {
	t.Parallel()

	var resp SearchResponse
	raw := `{"value":[{"id":"1","file_name":"a.pdf","summary":"s","@search.score":0.031}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	require.Len(t, resp.Value, 1)
	assert.InDelta(t, 0.031, resp.Value[0].Score, 1e-9)
}

// ── client ───────────────────────────────────────────────────────────────────

func TestClient_SearchRoundTrip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/search-documents", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "rivers", req.Search)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{Value: []SearchHit{{ID: "1", Score: 0.04}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithToken("tok"))
	resp, err := c.Search(context.Background(), &SearchRequest{Search: "rivers"})
	require.NoError(t, err)
	require.Len(t, resp.Value, 1)
	assert.Equal(t, "1", resp.Value[0].ID)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "upstream_error", Message: "search: upstream returned HTTP 403"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Synthesize(context.Background(), &SynthesisRequest{Query: "q", Documents: []string{"a"}})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "search: upstream returned HTTP 403", se.Body)
}

func TestClient_ScansQuery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(ScanList{Scans: []ScanSummary{{ID: "s1", Query: "q", Documents: 2}}})
	}))
	defer srv.Close()

	list, err := NewClient(srv.URL).Scans(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, list.Scans, 1)
	assert.Equal(t, "s1", list.Scans[0].ID)
}

func TestClient_Health(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL).Health(context.Background()))
}
