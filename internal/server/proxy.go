package server

import (
	"net/http"

	"github.com/54b3r/kscan/internal/api"
)

// handleEmbedding handles POST /api/get-embedding (proxy call #1). The
// upstream response is returned unchanged.
func (s *Server) handleEmbedding(w http.ResponseWriter, r *http.Request) {
	var req api.EmbeddingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := s.embedder.Embed(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleSearch handles POST /api/search-documents (proxy call #2).
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req api.SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := s.searcher.Search(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleSynthesis handles POST /api/generate-synthesis (proxy call #3).
func (s *Server) handleSynthesis(w http.ResponseWriter, r *http.Request) {
	var req api.SynthesisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	scan, err := s.synth.Synthesize(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, scan)
}

// handleBibliography handles POST /api/bibliography. Only local synthesis
// can answer it.
func (s *Server) handleBibliography(w http.ResponseWriter, r *http.Request) {
	if s.bib == nil {
		writeError(w, r, api.ErrUnsupported)
		return
	}
	var req api.BibliographyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := s.bib.Bibliographies(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}
