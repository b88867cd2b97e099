package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"lensd/internal/engine"
	"lensd/internal/lens"
	"lensd/internal/registry"
	"lensd/pkg/types"
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
	case registry.IsModelNotFound(err):
		return http.StatusNotFound
	case lens.IsIndexError(err), engine.IsInput(err):
		return http.StatusBadRequest
	case engine.IsModelUnavailable(err):
		return http.StatusServiceUnavailable
	case engine.IsRemote(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}
