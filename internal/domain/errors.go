package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// It is wrapped by ValidationError with the offending field.
	ErrValidation = errors.New("validation failed")

	// ErrRemoteTaskNotFound is returned by the external task source when it no
	// longer knows a task (expired or purged). It is an expected condition,
	// not a transient fault.
	ErrRemoteTaskNotFound = errors.New("remote task not found")

	// ErrBlobNotFound is returned by the blob store when the object to delete
	// is already absent.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrInvalidLocation is returned when an artifact location or URL cannot
	// be parsed into a bucket and key.
	ErrInvalidLocation = errors.New("invalid artifact location")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Message)
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
