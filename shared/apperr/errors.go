// Package apperr defines the error kinds shared by the hostel core, the store
// adapters and the HTTP services.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for bad input shape or range
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a referenced entity is absent
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an operation violates a current-state invariant
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition is returned for an illegal state-machine move
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrTransient is returned for store or network failures that are safe to retry
	ErrTransient = errors.New("transient failure")
)

// Error is a classified error. errors.Is matches it against its Kind.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%v: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, msg)
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind error, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Validation builds an ErrValidation error.
func Validation(op, format string, args ...interface{}) error {
	return newf(ErrValidation, op, format, args...)
}

// NotFound builds an ErrNotFound error for an entity of the given kind.
func NotFound(op, entity, id string) error {
	return newf(ErrNotFound, op, "%s %q not found", entity, id)
}

// Conflict builds an ErrConflict error.
func Conflict(op, format string, args ...interface{}) error {
	return newf(ErrConflict, op, format, args...)
}

// InvalidTransition builds an ErrInvalidTransition error.
func InvalidTransition(op, format string, args ...interface{}) error {
	return newf(ErrInvalidTransition, op, format, args...)
}

// Transient wraps a store or network failure. A nil err yields nil, and an
// error that is already classified is returned unchanged.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Kind: ErrTransient, Op: op, Err: err}
}

// KindOf returns the kind of err, or nil when err is not classified.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrInvalidTransition, ErrTransient} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Retryable reports whether the caller may retry automatically.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
