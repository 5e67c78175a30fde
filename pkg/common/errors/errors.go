// Package errors defines the error taxonomy shared across goexec components.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates that an operation was attempted on a closed
	// queue or a shut-down executor.
	ErrClosed = errors.New("resource is closed")

	// ErrTimeout indicates that a blocking operation exceeded its wait.
	ErrTimeout = errors.New("operation timed out")

	// ErrCapacityExceeded indicates that a bounded queue is at capacity.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrOverloaded indicates that a submission was rejected because the
	// queue is full and the worker pool is at maximum size.
	ErrOverloaded = errors.New("executor overloaded")

	// ErrCancelled indicates that a task was cancelled before it produced
	// a result.
	ErrCancelled = errors.New("task cancelled")

	// ErrInvalidConfiguration indicates invalid configuration parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// IsRetryable returns true if the error indicates a condition that might
// be resolved by retrying the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrOverloaded) ||
		errors.Is(err, ErrCapacityExceeded)
}

// IsTemporary returns true if the error indicates a temporary condition.
func IsTemporary(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrCapacityExceeded)
}

// ValidationError describes a rejected configuration value.
type ValidationError struct {
	Component string
	Field     string
	Value     interface{}
	Reason    string
	Hint      string
}

// NewValidationError creates a ValidationError for the given component field.
func NewValidationError(component, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Component: component,
		Field:     field,
		Value:     value,
		Reason:    reason,
	}
}

// WithHint attaches a remediation hint to the error.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s (%v): %s", e.Component, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// Unwrap makes ValidationError match ErrInvalidConfiguration via errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}
