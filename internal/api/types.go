// Package api defines the JSON wire contract shared by the kscan proxy, its
// upstream backends and the HTTP client used by the terminal shell. The shapes
// mirror the Azure OpenAI embeddings API, the Azure AI Search query API and
// the knowledge scan function so requests can be forwarded without rewriting.
package api

import "time"

// EmbeddingRequest is the body of POST /api/get-embedding.
type EmbeddingRequest struct {
	// Input is the text to embed.
	Input string `json:"input" validate:"required"`
}

// EmbeddingData is a single embedding vector in an EmbeddingResponse.
type EmbeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// EmbeddingResponse is the embeddings response normalised to its vectors.
// Upstream extras (model, usage, object) are not forwarded.
type EmbeddingResponse struct {
	Data []EmbeddingData `json:"data"`
}

// First returns the first embedding vector, or false when the response
// carries no data or an empty vector.
func (r *EmbeddingResponse) First() ([]float32, bool) {
	if r == nil || len(r.Data) == 0 || len(r.Data[0].Embedding) == 0 {
		return nil, false
	}
	return r.Data[0].Embedding, true
}

// VectorQuery is one entry of SearchRequest.VectorQueries.
type VectorQuery struct {
	// Kind is always "vector".
	Kind string `json:"kind" validate:"omitempty,eq=vector"`
	// Vector is the query embedding.
	Vector []float32 `json:"vector" validate:"required,min=1"`
	// K is the number of nearest neighbours to return.
	K int `json:"k" validate:"gte=0"`
	// Fields names the vector field(s) to search, comma-separated.
	Fields string `json:"fields"`
}

// SearchRequest is the body of POST /api/search-documents. It uses the Azure
// AI Search query shape regardless of the configured backend.
type SearchRequest struct {
	Search        string        `json:"search" validate:"required_without=VectorQueries"`
	VectorQueries []VectorQuery `json:"vectorQueries,omitempty" validate:"omitempty,dive"`
	Select        string        `json:"select,omitempty"`
	Filter        string        `json:"filter,omitempty"`
	Top           int           `json:"top,omitempty" validate:"gte=0"`
}

// SearchHit is a single search result.
type SearchHit struct {
	ID            string  `json:"id"`
	FileName      string  `json:"file_name"`
	Summary       string  `json:"summary"`
	PublishedDate string  `json:"published_date,omitempty"`
	Score         float64 `json:"@search.score"`
}

// SearchResponse is the body returned from POST /api/search-documents. Hits
// carry only the SearchHit fields, whatever the request selected.
type SearchResponse struct {
	Value []SearchHit `json:"value"`
}

// Record is a full index document as returned by a key lookup. ContentText
// is only populated by lookups, never by vector search.
type Record struct {
	ID          string   `json:"id"`
	FileName    string   `json:"file_name"`
	Summary     string   `json:"summary"`
	ContentText string   `json:"content_text,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Resource    string   `json:"resource,omitempty"`
}

// SynthesisRequest is the body of POST /api/generate-synthesis.
type SynthesisRequest struct {
	// Query is the user's original question.
	Query string `json:"query" validate:"required"`
	// Documents are the IDs of the selected documents, in display order.
	Documents []string `json:"documents" validate:"required,min=1,dive,required"`
}

// CombinedSummary is the synthesised summary of one source PDF.
type CombinedSummary struct {
	PDFName      string `json:"pdf_name"`
	Bibliography string `json:"bibliography"`
	Summary      string `json:"summary"`
}

// KnowledgeScan is the synthesis result rendered by the chat shells.
type KnowledgeScan struct {
	ID                string            `json:"id,omitempty"`
	Query             string            `json:"query,omitempty"`
	GeneralNotes      string            `json:"general_notes"`
	CombinedSummaries []CombinedSummary `json:"combined_summaries"`
	OverallSummary    string            `json:"overall_summary"`
	Keywords          []string          `json:"keywords,omitempty"`
	ResourcesSearched []string          `json:"resources_searched,omitempty"`
	DocIDs            []string          `json:"doc_ids,omitempty"`
	CreatedAt         time.Time         `json:"created_at,omitzero"`
}

// ScanSummary is a row in GET /api/scans.
type ScanSummary struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Documents int       `json:"documents"`
	CreatedAt time.Time `json:"created_at"`
}

// ScanList is the body returned from GET /api/scans.
type ScanList struct {
	Scans []ScanSummary `json:"scans"`
}

// BibliographyRequest is the body of POST /api/bibliography.
type BibliographyRequest struct {
	Documents []string `json:"documents" validate:"required,min=1,dive,required"`
}

// BibliographyResponse holds one formatted entry per source PDF.
type BibliographyResponse struct {
	Bibliographies []string `json:"bibliographies"`
}

// ErrorResponse is the JSON error envelope written by the server.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
