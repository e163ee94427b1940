package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind categorises transport failures so callers can decide between
// retrying (connectivity) and giving up (rejections).
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "unauthorized"
	KindInvalidAuth  ErrorKind = "invalid_auth"
	KindBadRequest   ErrorKind = "bad_request"
	KindInvalidApp   ErrorKind = "invalid_app"
	// KindConnectivity covers failures with no distinguishing response code:
	// DNS, dial, timeout, connection reset.
	KindConnectivity ErrorKind = "connectivity"
	KindUnhandled    ErrorKind = "unhandled"
)

// APIError is the typed failure surfaced by every transport call. Errors are
// data handed back through results, never panics.
type APIError struct {
	Kind ErrorKind
	// Status is the HTTP status code, or zero for connectivity failures.
	Status      int
	Description string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Description)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// Retryable reports whether the failure is worth re-attempting as-is.
func (e *APIError) Retryable() bool {
	return e.Kind == KindConnectivity
}

// NewConnectivityError wraps a low-level network failure.
func NewConnectivityError(err error) *APIError {
	return &APIError{Kind: KindConnectivity, Description: err.Error()}
}

// ErrorFromStatus maps an HTTP response status to the error taxonomy.
func ErrorFromStatus(status int, description string) *APIError {
	kind := KindUnhandled
	switch status {
	case http.StatusUnauthorized:
		kind = KindUnauthorized
	case http.StatusForbidden:
		kind = KindInvalidAuth
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = KindBadRequest
	case http.StatusNotFound, http.StatusGone:
		kind = KindInvalidApp
	}
	return &APIError{Kind: kind, Status: status, Description: description}
}

// IsConnectivity reports whether err is a connectivity-class transport error.
func IsConnectivity(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindConnectivity
}
