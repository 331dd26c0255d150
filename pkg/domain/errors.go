package domain

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrEmptyInput is returned when the host sends no payload.
var ErrEmptyInput = errors.New("empty hook input")

// ErrUnknownStage is returned when a payload names a stage the app does not know.
var ErrUnknownStage = errors.New("unknown hook stage")

// ErrInvalidDecision is returned when a string cannot be parsed as a Decision.
var ErrInvalidDecision = errors.New("invalid decision")

// ErrInvalidFilter is returned when a callback observer is registered with
// more than one event kind, or with a kind outside the fixed set.
var ErrInvalidFilter = errors.New("invalid event filter")

// HandlerError wraps the failure of a single handler. It is what the caller
// of a dispatch receives after hook_error has been emitted.
type HandlerError struct {
	Handler string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed: %v", e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError carries the value recovered from a panicking handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorType reports a stable name so events do not leak Go internals.
func (e *PanicError) ErrorType() string {
	return "panic"
}

// ErrorTypeName returns the short type name recorded in error events.
// Errors may override it with an ErrorType() string method; otherwise the
// Go type name is used with the package path and pointer stripped.
func ErrorTypeName(err error) string {
	if err == nil {
		return ""
	}
	if named, ok := err.(interface{ ErrorType() string }); ok {
		return named.ErrorType()
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "error"
	}
	return t.Name()
}
