// Package validation provides configuration validation helpers shared by
// goexec components.
package validation

import (
	"strconv"
	"time"

	gxerrors "github.com/vnykmshr/goexec/pkg/common/errors"
)

// Positive validates that an integer value is positive (> 0).
func Positive(component, field string, value int) error {
	if value <= 0 {
		return gxerrors.NewValidationError(component, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// PositiveFloat validates that a float64 value is positive (> 0).
func PositiveFloat(component, field string, value float64) error {
	if value <= 0 {
		return gxerrors.NewValidationError(component, field, value, "must be positive")
	}
	return nil
}

// NonNegativeDuration validates that a duration is zero or positive.
func NonNegativeDuration(component, field string, value time.Duration) error {
	if value < 0 {
		return gxerrors.NewValidationError(component, field, value, "cannot be negative").
			WithHint("use 0 to disable or a positive duration")
	}
	return nil
}

// PositiveDuration validates that a duration is strictly positive.
func PositiveDuration(component, field string, value time.Duration) error {
	if value <= 0 {
		return gxerrors.NewValidationError(component, field, value, "must be positive")
	}
	return nil
}

// NotNil validates that an interface value is not nil.
func NotNil(component, field string, value interface{}) error {
	if value == nil {
		return gxerrors.NewValidationError(component, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}

// AtLeast validates that value >= min.
func AtLeast(component, field string, value, min int) error {
	if value < min {
		return gxerrors.NewValidationError(component, field, value, "below minimum").
			WithHint("value must be >= " + strconv.Itoa(min))
	}
	return nil
}

// Ordered validates that lo <= hi, for paired limits such as core and
// maximum worker counts.
func Ordered(component, loField, hiField string, lo, hi int) error {
	if hi < lo {
		return gxerrors.NewValidationError(component, hiField, hi, "must be >= "+loField)
	}
	return nil
}
