package httpapi

import (
	"encoding/json"
	"net/http"

	"inferd/internal/adapters"
	"inferd/internal/handler"
	"inferd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps well-known handler errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case handler.IsInvalidBatchSize(err), handler.IsDecode(err):
		return http.StatusBadRequest
	case adapters.IsUnknownAdapter(err):
		return http.StatusNotFound
	case handler.IsEngineFailure(err):
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
