// Package httputil writes JSON responses and error envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"blackhole/pkg/platform/sentinel"
)

// Error codes returned in the "error" field.
const (
	CodeInternal    = "internal_error"
	CodeUnavailable = "service_unavailable"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into a status and envelope. The error text itself
// never reaches the client.
func WriteError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	WriteJSON(w, status, ErrorResponse{Error: code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, sentinel.ErrUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
