// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Training errors.
	ErrConfiguration       = errors.New("invalid training configuration")
	ErrDegradedCalibration = errors.New("calibration degraded to uncalibrated probabilities")

	// Inference errors.
	ErrModelUnavailable = errors.New("model unavailable")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// ConfigurationErrorf wraps ErrConfiguration with a formatted detail message.
func ConfigurationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// ModelUnavailable wraps ErrModelUnavailable with the underlying cause, if any.
func ModelUnavailable(cause error) error {
	if cause == nil {
		return ErrModelUnavailable
	}
	return fmt.Errorf("%w: %w", ErrModelUnavailable, cause)
}

// IsUserFacing reports whether err is something the caller should surface
// rather than treat as an internal failure.
func IsUserFacing(err error) bool {
	var userErr *UserError
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrModelUnavailable) ||
		errors.As(err, &userErr)
}
