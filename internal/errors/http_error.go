package errors

import (
	"errors"
	"net/http"
)

// Kind classifies a failed operation so handlers can pick the right
// HTTP status without string matching.
type Kind int

const (
	KindValidation Kind = iota
	KindConflict
	KindIllegalTransition
	KindNotFound
	KindUpstream
	KindUnauthorized
	KindInternal
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given kind, code and message.
func NewHTTPError(kind Kind, code int, message string) *HTTPError {
	return &HTTPError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Helpers for common errors
func Validation(msg string) *HTTPError {
	return NewHTTPError(KindValidation, http.StatusBadRequest, msg)
}

// Conflict signals that an availability check failed at write time.
// The caller may retry the whole acquire/create flow.
func Conflict(msg string) *HTTPError {
	return NewHTTPError(KindConflict, http.StatusConflict, msg)
}

// IllegalTransition signals a state machine edge that does not exist.
// It is never coerced into a no-op.
func IllegalTransition(msg string) *HTTPError {
	return NewHTTPError(KindIllegalTransition, http.StatusConflict, msg)
}

func NotFound(msg string) *HTTPError {
	return NewHTTPError(KindNotFound, http.StatusNotFound, msg)
}

// Upstream signals a malformed or failed interaction with an external
// collaborator (gateway, directory). Local state is left untouched.
func Upstream(msg string) *HTTPError {
	return NewHTTPError(KindUpstream, http.StatusBadGateway, msg)
}

func Unauthorized(msg string) *HTTPError {
	return NewHTTPError(KindUnauthorized, http.StatusUnauthorized, msg)
}

// IsKind reports whether err is an HTTPError of the given kind.
func IsKind(err error, kind Kind) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Kind == kind
	}
	return false
}

// StatusFor returns the HTTP status code for err, defaulting to 500.
func StatusFor(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
