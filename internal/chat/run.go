package chat

import (
	"context"
	"log/slog"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/logging"
	"github.com/54b3r/kscan/internal/search"
)

// Searcher runs a full query-to-documents search. *search.Service
// implements it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Document, error)
}

// RunSearch submits query on s, runs it through svc and records the outcome.
// The returned error is the Submit error or the search error.
func RunSearch(ctx context.Context, s *Session, svc Searcher, query string) error {
	if err := s.Submit(query); err != nil {
		return err
	}
	docs, err := svc.Search(ctx, query)
	if err != nil {
		logging.FromContext(ctx).Warn("chat: search failed",
			slog.String("session_id", s.ID()),
			slog.String("error", err.Error()),
		)
		s.SearchFailed(err)
		return err
	}
	s.SearchSucceeded(docs)
	return nil
}

// RunSynthesis synthesises the current selection of s through synth and
// records the outcome.
func RunSynthesis(ctx context.Context, s *Session, synth api.Synthesizer) error {
	req, err := s.BeginSynthesis()
	if err != nil {
		return err
	}
	scan, err := synth.Synthesize(ctx, req)
	if err != nil {
		logging.FromContext(ctx).Warn("chat: synthesis failed",
			slog.String("session_id", s.ID()),
			slog.Int("documents", len(req.Documents)),
			slog.String("error", err.Error()),
		)
		s.SynthesisFailed(err)
		return err
	}
	s.SynthesisSucceeded(scan)
	return nil
}
