// Package handler turns HTTP requests into service calls and service results
// into JSON responses. Handlers never touch the database and never decide
// permissions; they read the Actor the auth middleware attached to the
// request and pass it down.
package handler

// RESPONSE HELPERS:
// Every response goes through writeJSON, every failure through writeError,
// so the API has exactly one success shape per resource and one error shape:
//
//	{"error": "not_found", "detail": "Title not found"}
//	{"error": "validation_error", "detail": "Enter a valid email address.", "field": "email"}

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sakif/yamdb/internal/apperror"
)

// maxBodyBytes caps request bodies. Nothing in the API needs more.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`           // machine-readable code
	Detail string `json:"detail"`          // human-readable message
	Field  string `json:"field,omitempty"` // offending input field, when there is one
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; anything set afterwards is silently dropped.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a service error to a status code and the error body.
//
// Services return apperror values wrapped however deep; errors.Is walks the
// chain to the sentinel, errors.As pulls out the message and field. Anything
// that is not an AppError is an internal failure: it's logged with the
// request, and the client only sees a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, logger, http.StatusInternalServerError, ErrorResponse{
			Error:  "internal_error",
			Detail: "An internal error occurred.",
		})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, "not_authenticated"
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	case errors.Is(err, apperror.ErrForbidden):
		status, code = http.StatusForbidden, "permission_denied"
	case errors.Is(err, apperror.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	}

	writeJSON(w, logger, status, ErrorResponse{
		Error:  code,
		Detail: appErr.Message,
		Field:  appErr.Field,
	})
}

// decodeJSON reads the request body into dst. Malformed JSON and unknown
// value types are reported as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("", fmt.Sprintf("Request body exceeds %d bytes.", maxErr.Limit))
		}
		return apperror.ValidationFailed("", "JSON parse error: "+err.Error())
	}
	return nil
}

// NotFound is the router's fallback for unknown paths.
func NotFound(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusNotFound, ErrorResponse{Error: "not_found", Detail: "Not found."})
	}
}

// MethodNotAllowed is the router's fallback for a known path with the wrong method.
func MethodNotAllowed(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusMethodNotAllowed, ErrorResponse{
			Error:  "method_not_allowed",
			Detail: fmt.Sprintf("Method %q not allowed.", r.Method),
		})
	}
}

// TooManyRequests answers requests rejected by the rate limiter.
func TooManyRequests(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusTooManyRequests, ErrorResponse{
			Error:  "throttled",
			Detail: "Request was throttled.",
		})
	}
}
