// Package search orchestrates a query: one embedding call, one vector search,
// then a mapping of raw hits into display documents labelled with a
// relevance bucket. It works over api.Embedder and api.Searcher, so the same
// code runs in-process inside the server and over HTTP from the terminal
// shell.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/logging"
)

// Query defaults sent with every vector search.
const (
	DefaultK      = 5
	DefaultFields = "vector"
	DefaultSelect = "file_name,summary,id"
)

var (
	// ErrEmptyQuery is returned when the query is blank after trimming.
	ErrEmptyQuery = errors.New("search: query is empty")
	// ErrNoEmbedding is returned when the embedding response has no vector.
	ErrNoEmbedding = errors.New("search: embedding response contained no vector")
)

// Document is a search hit as shown to the user.
type Document struct {
	ID            string    `json:"id"`
	PublishedDate string    `json:"publishedDate"`
	FileName      string    `json:"fileName"`
	Summary       string    `json:"summary"`
	Relevance     Relevance `json:"relevance"`
	Score         float64   `json:"score"`
	Selected      bool      `json:"selected"`
}

// DisplayName is the cleaned file name shown in the selection list.
func (d Document) DisplayName() string {
	return CleanFileName(d.FileName)
}

// Service runs the embed-then-search pipeline.
type Service struct {
	embedder   api.Embedder
	searcher   api.Searcher
	thresholds Thresholds
	k          int
	selectList string
}

// Option configures a Service.
type Option func(*Service)

// WithThresholds overrides the relevance bucket boundaries.
func WithThresholds(t Thresholds) Option {
	return func(s *Service) { s.thresholds = t }
}

// WithK overrides the number of neighbours requested.
func WithK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.k = k
		}
	}
}

// WithSelect overrides the select list (e.g. to add published_date).
func WithSelect(sel string) Option {
	return func(s *Service) {
		if sel != "" {
			s.selectList = sel
		}
	}
}

// NewService returns a Service over e and s.
func NewService(e api.Embedder, s api.Searcher, opts ...Option) *Service {
	svc := &Service{
		embedder:   e,
		searcher:   s,
		thresholds: DefaultThresholds(),
		k:          DefaultK,
		selectList: DefaultSelect,
	}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

// Thresholds returns the relevance boundaries in use.
func (s *Service) Thresholds() Thresholds { return s.thresholds }

// Search embeds query, runs the vector search and maps the hits. Upstream
// order is preserved and every document starts unselected.
func (s *Service) Search(ctx context.Context, query string) ([]Document, error) {
	log := logging.FromContext(ctx)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	emb, err := s.embedder.Embed(ctx, &api.EmbeddingRequest{Input: query})
	if err != nil {
		return nil, fmt.Errorf("search: embed: %w", err)
	}
	vec, ok := emb.First()
	if !ok {
		return nil, ErrNoEmbedding
	}

	resp, err := s.searcher.Search(ctx, s.Request(query, vec))
	if err != nil {
		return nil, fmt.Errorf("search: vector search: %w", err)
	}

	docs := s.Map(resp)
	log.Debug("search: completed",
		slog.Int("hits", len(docs)),
		slog.Int("dimensions", len(vec)),
		slog.Duration("duration", time.Since(start)),
	)
	return docs, nil
}

// Request builds the vector search request for query and its embedding.
func (s *Service) Request(query string, vec []float32) *api.SearchRequest {
	return &api.SearchRequest{
		Search: query,
		VectorQueries: []api.VectorQuery{{
			Kind:   "vector",
			Vector: vec,
			K:      s.k,
			Fields: DefaultFields,
		}},
		Select: s.selectList,
	}
}

// Map converts a raw search response into display documents.
func (s *Service) Map(resp *api.SearchResponse) []Document {
	if resp == nil {
		return nil
	}
	docs := make([]Document, 0, len(resp.Value))
	for _, h := range resp.Value {
		docs = append(docs, Document{
			ID:            h.ID,
			PublishedDate: h.PublishedDate,
			FileName:      h.FileName,
			Summary:       h.Summary,
			Relevance:     s.thresholds.Bucket(h.Score),
			Score:         h.Score,
		})
	}
	return docs
}
