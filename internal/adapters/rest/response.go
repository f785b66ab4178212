package rest

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
	"github.com/jordanpartridge/conduit-dj/internal/core/ports"
	"github.com/jordanpartridge/conduit-dj/internal/core/services"
)

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	errCodeNoConfidentMatch = "NO_CONFIDENT_MATCH"
	errCodeNoActiveSession  = "NO_ACTIVE_SESSION"
	errCodeUnknownMode      = "UNKNOWN_MODE"
	errCodeNotFound         = "NOT_FOUND"
	errCodeInternal         = "INTERNAL"
	errCodeNotConfigured    = "NOT_CONFIGURED"

	maxBodyBytes = 1 << 20
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	code := errCodeInternal
	switch status {
	case http.StatusBadRequest:
		code = errCodeBadRequest
	case http.StatusUnsupportedMediaType:
		code = errCodeUnsupportedMedia
	case http.StatusNotFound:
		code = errCodeNotFound
	case http.StatusNotImplemented:
		code = errCodeNotConfigured
	}
	writeErrorWithCode(w, status, message, code)
}

func writeErrorWithCode(w http.ResponseWriter, status int, message string, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeServiceError maps core sentinels onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNoActiveSession):
		writeErrorWithCode(w, http.StatusNotFound, err.Error(), errCodeNoActiveSession)
	case errors.Is(err, services.ErrUnknownMode):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeUnknownMode)
	case errors.Is(err, ports.ErrNoConfidentMatch):
		writeErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), errCodeNoConfidentMatch)
	case errors.Is(err, domain.ErrNotFound):
		writeErrorWithCode(w, http.StatusNotFound, err.Error(), errCodeNotFound)
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorWithCode(w, http.StatusInternalServerError, err.Error(), errCodeInternal)
	}
}

func isJSONContentType(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// decodeJSON enforces the JSON content type and decodes the body into dst,
// writing the error response itself. It reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
