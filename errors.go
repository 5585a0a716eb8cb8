package ninjadb

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// Data errors
	ErrNotFound    = errors.New("document not found")
	ErrConflict    = errors.New("concurrent modification detected")
	ErrInvalidData = errors.New("invalid data format")

	// Backend errors
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUnauthorized       = errors.New("unauthorized access")

	// Usage errors, raised before any backend call
	ErrUnsupportedOperator = errors.New("unsupported filter operator")
	ErrMalformedFilter     = errors.New("malformed filter")
	ErrInvalidID           = errors.New("invalid document id")
	ErrInvalidCollection   = errors.New("invalid collection name")

	// Sequence errors
	ErrSequenceRetries = errors.New("sequence update retries exhausted")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrorWithContext adds additional context to errors for better debugging and logging
type ErrorWithContext struct {
	Err     error
	Context map[string]interface{}
}

func (e *ErrorWithContext) Error() string {
	if len(e.Context) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (context: %+v)", e.Err, e.Context)
}

func (e *ErrorWithContext) Unwrap() error {
	return e.Err
}

// WithContext adds context to an error
func WithContext(err error, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ErrorWithContext{
		Err:     err,
		Context: context,
	}
}

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUsageError reports whether err was caused by a bad call rather than by the backend.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrUnsupportedOperator) ||
		errors.Is(err, ErrMalformedFilter) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidCollection)
}

// IsPermanent checks if an error is permanent (not retryable)
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidData) ||
		errors.Is(err, ErrInvalidConfig) ||
		IsUsageError(err)
}
