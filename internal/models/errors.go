package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the cache, the remote adapters and the repositories.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnavailable  = errors.New("remote store unavailable")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource already exists")
	ErrForbidden    = errors.New("forbidden")
)

// ValidationError reports malformed input rejected before any I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
