package services

import (
	"errors"
	"fmt"
)

// Sentinel errors used across services. Handlers map these to HTTP statuses:
// ErrValidation -> 400, ErrNotFound -> 404, anything else -> 500.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

// validationError wraps ErrValidation with a caller-facing message
func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

// notFoundError wraps ErrNotFound with the missing entity's name
func notFoundError(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}
