package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelIdentity(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"closed", fmt.Errorf("submit: %w", ErrClosed), ErrClosed},
		{"timeout", fmt.Errorf("get: %w", ErrTimeout), ErrTimeout},
		{"overloaded", fmt.Errorf("submit: %w", ErrOverloaded), ErrOverloaded},
		{"cancelled", fmt.Errorf("get: %w", ErrCancelled), ErrCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !stderrors.Is(tt.err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", ErrTimeout, true},
		{"overloaded", ErrOverloaded, true},
		{"capacity", ErrCapacityExceeded, true},
		{"closed", ErrClosed, false},
		{"cancelled", ErrCancelled, false},
		{"wrapped timeout", fmt.Errorf("enqueue: %w", ErrTimeout), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTemporary(t *testing.T) {
	if !IsTemporary(ErrTimeout) {
		t.Error("ErrTimeout should be temporary")
	}
	if IsTemporary(ErrClosed) {
		t.Error("ErrClosed should not be temporary")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("pool", "CoreWorkers", 0, "must be positive").
		WithHint("use at least 1 worker")

	if !stderrors.Is(err, ErrInvalidConfiguration) {
		t.Error("ValidationError should match ErrInvalidConfiguration")
	}

	msg := err.Error()
	for _, part := range []string{"pool", "CoreWorkers", "must be positive", "use at least 1 worker"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error message %q missing %q", msg, part)
		}
	}

	var verr *ValidationError
	if !stderrors.As(err, &verr) {
		t.Fatal("errors.As should recover *ValidationError")
	}
	if verr.Field != "CoreWorkers" {
		t.Errorf("Field = %q, want CoreWorkers", verr.Field)
	}
}
