package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/index"
	"github.com/54b3r/kscan/internal/logging"
	"github.com/54b3r/kscan/internal/search"
	"github.com/54b3r/kscan/internal/store"
	"github.com/54b3r/kscan/internal/synthesis"
)

// maxBodyBytes caps request bodies. A search body carries one embedding
// vector, which is well under this.
const maxBodyBytes = 1 << 20

// Error codes used in the "error" field of api.ErrorResponse.
const (
	codeBadRequest     = "bad_request"
	codeValidation     = "validation_error"
	codeUnauthorized   = "unauthorized"
	codeNotFound       = "not_found"
	codeRateLimited    = "rate_limited"
	codeUpstream       = "upstream_error"
	codeNotImplemented = "not_implemented"
	codeInternal       = "internal_error"
)

// errBadJSON wraps body decode failures.
var errBadJSON = errors.New("invalid JSON body")

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("response encode error", slog.Any("error", err))
	}
}

// writeErrorCode writes the JSON error envelope.
func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code, msg string, details map[string]any) {
	writeJSON(w, r, status, api.ErrorResponse{Error: code, Message: msg, Details: details})
}

// writeError maps err to a status code and writes the JSON error envelope:
// validation problems are 400, upstream failures 502 with the upstream
// status in details, unsupported operations 501, anything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	var verr *api.ValidationError
	var serr *api.StatusError
	switch {
	case errors.As(err, &verr):
		details := make(map[string]any, len(verr.Fields))
		for k, v := range verr.Fields {
			details[k] = v
		}
		writeErrorCode(w, r, http.StatusBadRequest, codeValidation, verr.Error(), details)

	case errors.Is(err, errBadJSON),
		errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, synthesis.ErrEmptyQuery),
		errors.Is(err, synthesis.ErrNoSelection):
		writeErrorCode(w, r, http.StatusBadRequest, codeBadRequest, err.Error(), nil)

	case errors.As(err, &serr):
		log.Warn("upstream error",
			slog.String("service", serr.Service),
			slog.Int("upstream_status", serr.Code),
		)
		writeErrorCode(w, r, http.StatusBadGateway, codeUpstream, err.Error(), map[string]any{
			"service": serr.Service,
			"status":  serr.Code,
		})

	case errors.Is(err, search.ErrNoEmbedding):
		writeErrorCode(w, r, http.StatusBadGateway, codeUpstream, err.Error(), map[string]any{"service": "embedding"})

	case errors.Is(err, api.ErrUnsupported):
		writeErrorCode(w, r, http.StatusNotImplemented, codeNotImplemented, err.Error(), nil)

	case errors.Is(err, store.ErrNotFound), errors.Is(err, index.ErrNotFound):
		writeErrorCode(w, r, http.StatusNotFound, codeNotFound, err.Error(), nil)

	default:
		log.Error("request failed", slog.Any("error", err))
		writeErrorCode(w, r, http.StatusInternalServerError, codeInternal, "internal server error", nil)
	}
}

// decodeJSON reads a JSON body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadJSON)
		}
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return api.Validate(v)
}

// handleAPINotFound answers unknown /api paths with the JSON envelope.
func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeErrorCode(w, r, http.StatusNotFound, codeNotFound, "no such endpoint: "+r.Method+" "+r.URL.Path, nil)
}
