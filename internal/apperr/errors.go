// Package apperr holds the error taxonomy shared by services and handlers.
// Every failure returned by a service wraps exactly one of the sentinel kinds
// below so callers can branch with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the user has no progress record (or another entity is absent).
	ErrNotFound = errors.New("not found")
	// ErrInvalidSelection is a rejected phase selection.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrInvalidCadence is a cadence other than daily, weekly or monthly.
	ErrInvalidCadence = errors.New("invalid cadence")
	// ErrInvalidInput is any other malformed request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownChallenge means the challenge id is not in any catalog.
	ErrUnknownChallenge = errors.New("unknown challenge")
	// ErrUnknownRoom means the room id does not exist.
	ErrUnknownRoom = errors.New("unknown room")
	// ErrAlreadyCompleted is the expected loser outcome of a completion race.
	ErrAlreadyCompleted = errors.New("already completed")
	// ErrStoreUnavailable is a transient infrastructure failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrTooManyAttempts is returned when room entry attempts are throttled.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrForbidden means the caller may not act on the requested user.
	ErrForbidden = errors.New("forbidden")
)

// Error carries the failing operation and a caller-facing message next to its kind.
type Error struct {
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches the kind as well as anything in the wrapped chain.
func (e *Error) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

// New builds an error of the given kind.
func New(op string, kind error, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(op string, kind error, message string, err error) *Error {
	return &Error{Op: op, Kind: kind, Message: message, Err: err}
}

// Unavailable wraps an infrastructure failure as ErrStoreUnavailable.
func Unavailable(op string, err error) *Error {
	return Wrap(op, ErrStoreUnavailable, "document store unavailable", err)
}

// Message returns the caller-facing message of err, or a generic one.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}

// IsRetryable reports whether the caller may retry with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
