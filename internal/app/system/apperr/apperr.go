// Package apperr defines the application error taxonomy shared by stores,
// the membership lifecycle and HTTP handlers.
//
// Every expected failure is an *Error carrying a Kind (which decides the HTTP
// status) and a stable Code (which clients switch on). Anything that is not an
// *Error is treated as KindServer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindNotAuthorized   Kind = "not_authorized"
	KindUnauthenticated Kind = "unauthenticated"
	KindConflict        Kind = "conflict"
	KindInvalidInput    Kind = "invalid_input"
	KindRateLimited     Kind = "rate_limited"
	KindServer          Kind = "server_error"
)

// Error is an expected application failure.
type Error struct {
	Kind    Kind
	Code    string // stable, machine readable
	Message string // safe to show to the caller
	Err     error  // optional cause, never shown to the caller
}

// New creates an Error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so wrapped copies of a sentinel compare equal to it.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: cause}
}

// WithMessage returns a copy of e with a different caller-facing message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: msg, Err: e.Err}
}

// Invalid builds an InvalidInput error with a custom message.
func Invalid(msg string) *Error {
	return New(KindInvalidInput, "invalid_input", msg)
}

// Internal wraps an unexpected error as a ServerError.
func Internal(err error) *Error {
	return ErrServer.Wrap(err)
}

// KindOf returns the Kind of err, or KindServer when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// As extracts the *Error from err. Non-application errors become ErrServer
// wrapping the original so callers can still log the cause.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrServer.Wrap(err)
}

// HTTPStatus maps a Kind to its HTTP status code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindNotAuthorized:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
