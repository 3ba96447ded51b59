package search

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/54b3r/kscan/internal/api"
)

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeEmbedder struct {
	resp  *api.EmbeddingResponse
	err   error
	calls int
	input string
}

func (f *fakeEmbedder) Embed(_ context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error) {
	f.calls++
	f.input = req.Input
	return f.resp, f.err
}

type fakeSearcher struct {
	resp *api.SearchResponse
	err  error
	got  *api.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
	f.got = req
	return f.resp, f.err
}

func vectorResponse(v ...float32) *api.EmbeddingResponse {
	return &api.EmbeddingResponse{Data: []api.EmbeddingData{{Embedding: v}}}
}

// ── Search ───────────────────────────────────────────────────────────────────

func TestService_Search(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{resp: vectorResponse(0.1, 0.2, 0.3)}
	srch := &fakeSearcher{resp: &api.SearchResponse{Value: []api.SearchHit{
		{ID: "b", FileName: "x/intermediate/b.pdf_chunk_1_pages_1_to_10.pdf", Summary: "sb", Score: 0.031},
		{ID: "a", FileName: "a.pdf", Summary: "sa", Score: 0.025, PublishedDate: "2020-01-01"},
		{ID: "c", FileName: "c.pdf", Summary: "sc", Score: 0.01},
	}}}

	docs, err := NewService(emb, srch).Search(context.Background(), "  sea level rise  ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if emb.calls != 1 || emb.input != "sea level rise" {
		t.Errorf("embed calls=%d input=%q", emb.calls, emb.input)
	}

	wantReq := &api.SearchRequest{
		Search: "sea level rise",
		VectorQueries: []api.VectorQuery{{
			Kind: "vector", Vector: []float32{0.1, 0.2, 0.3}, K: 5, Fields: "vector",
		}},
		Select: "file_name,summary,id",
	}
	if diff := cmp.Diff(wantReq, srch.got); diff != "" {
		t.Errorf("search request mismatch (-want +got):\n%s", diff)
	}

	want := []Document{
		{ID: "b", FileName: "x/intermediate/b.pdf_chunk_1_pages_1_to_10.pdf", Summary: "sb", Relevance: Great, Score: 0.031},
		{ID: "a", FileName: "a.pdf", Summary: "sa", Relevance: Good, Score: 0.025, PublishedDate: "2020-01-01"},
		{ID: "c", FileName: "c.pdf", Summary: "sc", Relevance: Fair, Score: 0.01},
	}
	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
}

func TestService_Search_Errors(t *testing.T) {
	t.Parallel()

	upstream := &api.StatusError{Service: "search", Code: 403}

	tests := []struct {
		name      string
		query     string
		emb       *fakeEmbedder
		srch      *fakeSearcher
		wantErr   error
		wantEmbed int
	}{
		{"blank query", "   ", &fakeEmbedder{}, &fakeSearcher{}, ErrEmptyQuery, 0},
		{"no embedding", "q", &fakeEmbedder{resp: &api.EmbeddingResponse{}}, &fakeSearcher{}, ErrNoEmbedding, 1},
		{"embed failure", "q", &fakeEmbedder{err: upstream}, &fakeSearcher{}, upstream, 1},
		{"search failure", "q", &fakeEmbedder{resp: vectorResponse(1)}, &fakeSearcher{err: upstream}, upstream, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewService(tt.emb, tt.srch).Search(context.Background(), tt.query)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.emb.calls != tt.wantEmbed {
				t.Errorf("embed calls = %d, want %d", tt.emb.calls, tt.wantEmbed)
			}
		})
	}
}

func TestService_Options(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, nil, WithK(10), WithSelect("file_name,summary,id,published_date"), WithK(0))
	req := svc.Request("q", []float32{1})
	if req.VectorQueries[0].K != 10 {
		t.Errorf("k = %d, want 10", req.VectorQueries[0].K)
	}
	if req.Select != "file_name,summary,id,published_date" {
		t.Errorf("select = %q", req.Select)
	}
	if svc.Map(nil) != nil {
		t.Error("Map(nil) should be nil")
	}
}

// ── relevance ────────────────────────────────────────────────────────────────

func TestThresholds_Bucket(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	tests := []struct {
		score float64
		want  Relevance
	}{
		{0.5, Great},
		{0.0301, Great},
		{0.03, Good},
		{0.025, Good},
		{0.02, Good},
		{0.0199, Fair},
		{0, Fair},
		{-1, Fair},
	}
	for _, tt := range tests {
		if got := th.Bucket(tt.score); got != tt.want {
			t.Errorf("Bucket(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestRelevance_Class(t *testing.T) {
	t.Parallel()
	cases := map[Relevance]string{
		Great:  "relevance-high",
		Good:   "relevance-medium",
		Fair:   "relevance-low",
		"Meh": "relevance-low",
	}
	for r, want := range cases {
		if got := r.Class(); got != want {
			t.Errorf("%s.Class() = %q, want %q", r, got, want)
		}
	}
}

func TestThresholdsFromEnv(t *testing.T) {
	t.Setenv("RELEVANCE_GREAT", "0.8")
	t.Setenv("RELEVANCE_GOOD", "0.6")
	th, err := ThresholdsFromEnv()
	if err != nil {
		t.Fatalf("ThresholdsFromEnv: %v", err)
	}
	if th.Great != 0.8 || th.Good != 0.6 {
		t.Errorf("got %+v", th)
	}

	t.Setenv("RELEVANCE_GOOD", "0.9")
	if _, err := ThresholdsFromEnv(); err == nil {
		t.Error("expected error when good > great")
	}

	t.Setenv("RELEVANCE_GREAT", "high")
	if _, err := ThresholdsFromEnv(); err == nil {
		t.Error("expected parse error")
	}
}

// ── file names ───────────────────────────────────────────────────────────────

func TestCleanFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"raw/intermediate/sea_level.pdf_chunk_2_pages_11_to_20.pdf", "sea.level_pages_11_to_20.pdf"},
		{"https://acct.blob.core.windows.net/c/intermediate/report.pdf_chunk_1_pages_1_to_10.pdf", "report.pages_1_to_10.pdf"},
		{"plain.pdf", "plain.pdf"},
		{"no_match_here.pdf", "no.match_here.pdf"},
	}
	for _, tt := range tests {
		if got := CleanFileName(tt.in); got != tt.want {
			t.Errorf("CleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	t.Parallel()
	if got := BaseName("a/b.pdf_chunk_3_pages_21_to_30.pdf"); got != "a/b.pdf" {
		t.Errorf("BaseName = %q", got)
	}
	if got := BaseName("whole.pdf"); got != "whole.pdf" {
		t.Errorf("BaseName = %q", got)
	}
}

func TestDocument_DisplayName(t *testing.T) {
	t.Parallel()
	d := Document{FileName: "intermediate/x.pdf_chunk_1_pages_1_to_10.pdf"}
	if got := d.DisplayName(); got != "x.pages_1_to_10.pdf" {
		t.Errorf("DisplayName = %q", got)
	}
}
