// Package apperrors defines the error kinds surfaced by the service layer.
package apperrors

import (
	"errors"
	"fmt"
)

// Kinds. Match with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrAuthentication      = errors.New("authentication failed")
	ErrAuthorization       = errors.New("not permitted")
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrQueueUnavailable    = errors.New("queue unavailable")
	ErrPersistence         = errors.New("persistence failure")
	ErrPaymentDeclined     = errors.New("payment declined")
)

// Error carries a kind, a caller-safe message and an optional internal cause.
// Only Message is meant for clients; Err is for logs.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Is matches the kind, so errors.Is(err, ErrNotFound) works through wrapping.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with formatting.
func Newf(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an internal cause to a kind.
func Wrap(kind error, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or nil if err carries none.
func KindOf(err error) error {
	for _, k := range []error{
		ErrValidation, ErrDuplicateEmail, ErrAuthentication, ErrAuthorization, ErrNotFound,
		ErrUpstreamUnavailable, ErrQueueUnavailable, ErrPersistence, ErrPaymentDeclined,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Message returns the caller-safe message of err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if k := KindOf(err); k != nil {
		return k.Error()
	}
	return "internal error"
}
