package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so every error
// response from the API has the same shape:
//
//	{"error": "not_found", "message": "post not found with id 65f1..."}
//
// "error" is a machine-readable type, "message" is for people.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/blog-platform/internal/apperror"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse is the body of responses that carry no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends data with the given status.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the first body byte; after that
// they are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are gone already; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status.
//
//	ErrValidation      → 400 validation_error
//	ErrDuplicate       → 400 duplicate
//	ErrNotFound        → 404 not_found
//	ErrUnauthenticated → 401 unauthenticated
//	anything else      → 500 internal_error
//
// The 500 body is generic: a raw store error can carry queries, hosts or
// file paths, and those stay in the server log.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errorType := http.StatusInternalServerError, "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, errorType = http.StatusBadRequest, "validation_error"
		case errors.Is(err, apperror.ErrDuplicate):
			status, errorType = http.StatusBadRequest, "duplicate"
		case errors.Is(err, apperror.ErrNotFound):
			status, errorType = http.StatusNotFound, "not_found"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status, errorType = http.StatusUnauthorized, "unauthenticated"
		}

		writeJSON(w, status, ErrorResponse{Error: errorType, Message: appErr.Message})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
