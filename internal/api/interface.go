package api

import "context"

// Embedder converts a query into an embedding vector via an external API.
type Embedder interface {
	Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error)
}

// Searcher runs a query against an external vector index.
type Searcher interface {
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
}

// Synthesizer turns a set of selected documents into a knowledge scan.
type Synthesizer interface {
	Synthesize(ctx context.Context, req *SynthesisRequest) (*KnowledgeScan, error)
}

// Bibliographer produces one bibliography entry per source PDF of the given
// document IDs. Only the local synthesis mode implements it.
type Bibliographer interface {
	Bibliographies(ctx context.Context, req *BibliographyRequest) (*BibliographyResponse, error)
}
