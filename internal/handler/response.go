package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//
//	{"statusCode":404,"message":"User not found with id=7","type":"NOT_FOUND_ERROR","timestamp":"2025-01-01T10:00:00.000Z"}
//
// Validation errors add "details": [{"field":"email","message":"Invalid email format"}].

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/user-service/internal/apperror"
)

// TimestampFormat is ISO-8601 in UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	StatusCode int                   `json:"statusCode"`
	Message    string                `json:"message"`
	Type       string                `json:"type"`
	Timestamp  string                `json:"timestamp"`
	Details    []apperror.FieldError `json:"details,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE writing the body. Once Encode writes,
// any header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// WriteError converts any error into the uniform JSON envelope.
//
// Typed errors keep their kind, message and details. Anything else is an
// internal fault: the client gets a generic SERVER_ERROR and the raw error
// is logged, never exposed (it may contain SQL or file paths).
func WriteError(w http.ResponseWriter, err error) {
	appErr := apperror.From(err)

	if appErr.Kind == apperror.KindServer {
		slog.Error("request failed", slog.String("error", err.Error()))
	}

	writeJSON(w, appErr.Status(), ErrorResponse{
		StatusCode: appErr.Status(),
		Message:    appErr.Message,
		Type:       appErr.Type(),
		Timestamp:  time.Now().UTC().Format(TimestampFormat),
		Details:    appErr.Details,
	})
}
