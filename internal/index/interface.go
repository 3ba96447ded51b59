// Package index implements the vector search upstream (proxy call #2) and the
// record lookups local synthesis needs. Two backends satisfy Index: Azure AI
// Search over REST, and Qdrant over gRPC. Both speak the Azure query shape on
// the way in and out, so the browser UI never sees which one is configured.
//
// kscan never writes to an index. Collections and indexes are provisioned by
// the ingestion pipeline that lives outside this repository.
package index

import (
	"context"
	"errors"

	"github.com/54b3r/kscan/internal/api"
)

// FirstChunkSuffix is appended to a PDF base name to find the chunk holding
// its title page.
const FirstChunkSuffix = "_chunk_1_pages_1_to_10.pdf"

// ErrNotFound is returned by Lookup when a document key does not exist.
var ErrNotFound = errors.New("index: document not found")

// Index is a read-only view over an external document index.
// Implementations must be safe to call from multiple goroutines.
type Index interface {
	api.Searcher

	// Lookup fetches full records by key, in the order given.
	Lookup(ctx context.Context, ids []string) ([]api.Record, error)

	// FirstChunk returns the first chunk of the PDF identified by baseName,
	// or (nil, nil) when the index has no such chunk.
	FirstChunk(ctx context.Context, baseName string) (*api.Record, error)

	// Ping checks that the index is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}
