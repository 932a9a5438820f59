// Package apperr defines the error taxonomy shared by all request paths.
// Each component reports the most specific kind it can determine; the
// orchestration layers pass kinds through unchanged to the HTTP boundary.
package apperr

import (
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
)

// Kind classifies a failure for boundary mapping.
type Kind string

const (
	// KindInvalidArgument means bad or missing caller input. Never retried.
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	// KindNotFound means no matching record upstream or in the store.
	KindNotFound Kind = "NOT_FOUND"
	// KindRateLimited means the upstream catalog throttled us. The caller
	// should back off; no automatic retry is performed.
	KindRateLimited Kind = "RATE_LIMITED"
	// KindExternalService covers upstream failures, timeouts, and
	// unexpected response shapes.
	KindExternalService Kind = "EXTERNAL_SERVICE_ERROR"
	// KindInternal is an unexpected local fault.
	KindInternal Kind = "INTERNAL_ERROR"
)

// Error carries a kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a kinded error with a fresh message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Err: eris.New(msg)}
}

// Newf creates a kinded error with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: eris.Errorf(format, args...)}
}

// Wrap attaches a kind and context message to an existing error.
func Wrap(kind Kind, err error, msg string) error {
	return &Error{Kind: kind, Err: eris.Wrap(err, msg)}
}

// KindOf extracts the kind from an error chain. Errors without an explicit
// kind are classified as internal faults.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether the error chain carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
