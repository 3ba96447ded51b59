package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/synthesis"
)

const (
	defaultScanLimit = 20
	maxScanLimit     = 100
)

// handleScans handles GET /api/scans?limit=N, newest first.
func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	if s.scans == nil {
		writeError(w, r, api.ErrUnsupported)
		return
	}
	limit := defaultScanLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeErrorCode(w, r, http.StatusBadRequest, codeBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxScanLimit)
	}
	scans, err := s.scans.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if scans == nil {
		scans = []api.ScanSummary{}
	}
	writeJSON(w, r, http.StatusOK, api.ScanList{Scans: scans})
}

// handleScan handles GET /api/scans/{id}.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	scan, ok := s.loadScan(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, scan)
}

// handleScanMarkdown handles GET /api/scans/{id}/markdown as a download.
func (s *Server) handleScanMarkdown(w http.ResponseWriter, r *http.Request) {
	scan, ok := s.loadScan(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="knowledge-scan-%s.md"`, scan.ID))
	_, _ = w.Write([]byte(synthesis.Markdown(scan)))
}

func (s *Server) loadScan(w http.ResponseWriter, r *http.Request) (*api.KnowledgeScan, bool) {
	if s.scans == nil {
		writeError(w, r, api.ErrUnsupported)
		return nil, false
	}
	scan, err := s.scans.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return scan, true
}
