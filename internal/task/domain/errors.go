package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers missing tasks, users, projects and parents. Staff
	// visibility denials are reported with it as well.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied is returned when a visible task may not be edited
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation is the parent of every *ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyRetired is returned by a completion or update that lost the
	// race against a completion of the same instance.
	ErrAlreadyRetired = errors.New("task is no longer the current instance")
)

// ValidationError describes a rejected input field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a *ValidationError
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
