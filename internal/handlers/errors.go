package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jeremyjsx/postdesk/internal/middleware"
	"github.com/jeremyjsx/postdesk/internal/posts"
)

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]string) {
	writeJSON(w, status, map[string]any{
		"error": APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func writeInternal(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err, "request_id", middleware.GetRequestID(r.Context()))
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
}

// writeServiceError maps post service errors to responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	switch {
	case errors.Is(err, posts.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "post not found", nil)
	case errors.Is(err, posts.ErrVersionNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "version not found", nil)
	case errors.Is(err, posts.ErrNoChange):
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "post already matches this version", nil)
	case errors.Is(err, posts.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cursor", nil)
	case errors.Is(err, posts.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		writeInternal(w, r, logger, msg, err)
	}
}
