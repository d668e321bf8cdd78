package api

import (
	"encoding/json"
	"net/http"
)

// APIError is the structured error body every endpoint returns.
type APIError struct {
	StatusCode int            `json:"status_code"`
	Message    string         `json:"message"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

func newAPIError(status int, message string) *APIError {
	return &APIError{StatusCode: status, Message: message}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err *APIError) {
	writeJSON(w, err.StatusCode, err)
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, newAPIError(http.StatusBadRequest, message))
}
