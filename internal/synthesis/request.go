// Package synthesis turns a selection of search hits into a knowledge scan.
// Two implementations of api.Synthesizer live here: Remote forwards the
// request to the knowledge scan function (proxy call #3), and Generator runs
// the same steps in-process against an external chat model.
package synthesis

import (
	"errors"
	"strings"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/search"
)

var (
	// ErrNoSelection is returned when no document is selected.
	ErrNoSelection = errors.New("synthesis: no documents selected")
	// ErrEmptyQuery is returned when the originating query is blank.
	ErrEmptyQuery = errors.New("synthesis: query is empty")
)

// BuildRequest collects the IDs of the selected documents, in display order.
func BuildRequest(query string, docs []search.Document) (*api.SynthesisRequest, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Selected {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoSelection
	}
	return &api.SynthesisRequest{Query: query, Documents: ids}, nil
}
