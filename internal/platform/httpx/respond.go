// Package httpx provides the JSON response envelope shared by all routes.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response shape: success responses carry data,
// failures carry a stable error code plus message and optional details.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON sends an arbitrary payload with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK sends a 200 success envelope.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// ListEnvelope is the success shape for paginated collections.
type ListEnvelope struct {
	Success    bool `json:"success"`
	Data       any  `json:"data"`
	TotalCount int  `json:"total_count"`
}

// OKList sends a 200 collection envelope with its total count.
func OKList(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListEnvelope{Success: true, Data: data, TotalCount: total})
}

// OKMessage sends a 200 success envelope with a human-readable message.
func OKMessage(w http.ResponseWriter, data any, message string) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Message: message})
}

// Created sends a 201 success envelope.
func Created(w http.ResponseWriter, data any, message string) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data, Message: message})
}

// RespondError maps an application error onto the failure envelope.
func RespondError(w http.ResponseWriter, err error) {
	appErr := AsError(err)
	JSON(w, appErr.Status, Envelope{
		Success: false,
		Error:   appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// DecodeJSON decodes a JSON request body into target, rejecting unknown
// payload shapes with a validation error.
func DecodeJSON(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return BadRequest("invalid JSON request body").Wrap(err)
	}
	return nil
}
