// Package http provides Engram's HTTP transport: JSON handlers over the
// memory engine (C5) and curation pipeline (C6), plus admin endpoints.
package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/engram-ai/engram/internal/domain"
)

// readJSON decodes a JSON request body with a size limit, matching the
// field-byte-ceiling rule of §4.6.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeErrorCode(w, http.StatusRequestEntityTooLarge, "InvalidRequest", "request body too large")
		} else {
			writeErrorCode(w, http.StatusBadRequest, "InvalidRequest", "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// apiErrorBody is the wire shape of every error response (§6.1:
// "Errors carry {error: {code, message, details?}}").
type apiErrorBody struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiErrorBody{Error: apiError{Code: code, Message: message}})
}

// writeDomainError maps an engine/store error onto the §7 taxonomy.
// Forbidden is intentionally folded into NotFound wherever the caller
// went through a witness-scoped operation, so this only needs to handle
// the codes engine.Annotate can still surface directly.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		writeErrorCode(w, http.StatusBadRequest, "InvalidRequest", msg)
	case errors.Is(err, domain.ErrForbidden):
		writeErrorCode(w, http.StatusForbidden, "Forbidden", "witness check failed")
	case errors.Is(err, domain.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "NotFound", "memory not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeErrorCode(w, http.StatusConflict, "AlreadyExists", "memory_id already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeErrorCode(w, http.StatusTooManyRequests, "RateLimited", "rate limit exceeded")
	case errors.Is(err, domain.ErrTimeout):
		writeErrorCode(w, http.StatusGatewayTimeout, "Timeout", "deadline expired")
	case errors.Is(err, domain.ErrStorageError):
		writeErrorCode(w, http.StatusServiceUnavailable, "StorageError", "storage temporarily unavailable")
	case errors.Is(err, domain.ErrUpstreamError):
		writeErrorCode(w, http.StatusBadGateway, "UpstreamError", "upstream collaborator call failed")
	default:
		id := correlationID()
		slog.Error("unhandled internal error", "error", err, "correlation_id", id)
		writeErrorCode(w, http.StatusInternalServerError, "InternalError", "internal error, correlation_id="+id)
	}
}

func correlationID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
