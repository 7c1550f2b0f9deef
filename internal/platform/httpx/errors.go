package httpx

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the canonical application error. It carries a stable category
// code, the HTTP status it maps to, a human-readable message, and optional
// structured details for client-side remediation.
type Error struct {
	Status  int
	Code    string
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// WithDetails attaches structured detail data and returns the error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// Wrap records the underlying cause and returns the error.
func (e *Error) Wrap(err error) *Error {
	e.cause = err
	return e
}

// Error categories shared by every route.
const (
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeAuthorization  = "AUTHORIZATION_ERROR"
	CodeValidation     = "VALIDATION_ERROR"
	CodeConflict       = "CONFLICT_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeConfiguration  = "CONFIGURATION_ERROR"
	CodeUpstream       = "UPSTREAM_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

// Unauthenticated builds a 401 error for requests with no resolvable actor.
func Unauthenticated(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeAuthentication, Message: message}
}

// Forbidden builds a 403 error for authenticated but unauthorized actors.
func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeAuthorization, Message: message}
}

// BadRequest builds a 400 error for structurally malformed input.
func BadRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: message}
}

// Unprocessable builds a 422 error for semantically invalid requests.
func Unprocessable(message string) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: CodeValidation, Message: message}
}

// Misconfigured builds a 422 error for configuration-level problems.
func Misconfigured(message string) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: CodeConfiguration, Message: message}
}

// Conflict builds a 409 error for state conflicts such as already-closed.
func Conflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Code: CodeConflict, Message: message}
}

// NotFound builds a 404 error for absent resources.
func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

// Upstream builds a 500 error for failures of the external ERPNext call.
func Upstream(message string) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeUpstream, Message: message}
}

// AsError extracts an *Error from an error chain, falling back to a generic
// internal error so handlers never leak raw messages.
func AsError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal server error", cause: err}
}
