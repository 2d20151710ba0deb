package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"genloop/internal/manager"
	"genloop/internal/session"
	"genloop/internal/snapstore"
	"genloop/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case manager.IsTooBusy(err):
		return http.StatusTooManyRequests
	case manager.IsModelNotFound(err),
		errors.Is(err, session.ErrNoSnapshot),
		errors.Is(err, snapstore.ErrNotFound):
		return http.StatusNotFound
	case manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case manager.IsNoSession(err),
		errors.Is(err, session.ErrStateSizeMismatch):
		return http.StatusConflict
	case session.IsInvalidArgument(err),
		errors.Is(err, snapstore.ErrInvalidName):
		return http.StatusBadRequest
	case session.IsContextExhausted(err),
		errors.Is(err, session.ErrUnsupportedModel):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError writes err with its mapped status and counts backpressure.
func writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("queue")
	}
	writeJSONError(w, status, err.Error())
	return status
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger().Error().Err(err).Msg("encode response")
	}
}
