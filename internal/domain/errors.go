package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during enrichment and statistics
// operations.
var (
	// ErrEmptyScores indicates that a statistic was requested over an
	// empty score set. It is distinct from a missing tournament.
	ErrEmptyScores = errors.New("empty score set")

	// ErrEmptyBatch indicates that a grading batch contained no entries.
	ErrEmptyBatch = errors.New("empty grading batch")

	// ErrInvalidConfiguration indicates that configuration is invalid or
	// incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// IntegrityError reports a violated tournament-construction invariant
// or an unresolvable reference. Operations failing with an
// IntegrityError must leave no partial writes behind.
type IntegrityError struct {
	// Entity is the name of the entity whose invariant was violated.
	Entity string

	// Detail describes the violated invariant.
	Detail string
}

// Error implements the error interface for IntegrityError.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error for %s: %s", e.Entity, e.Detail)
}

// NewIntegrityError creates a new IntegrityError with the given details.
func NewIntegrityError(entity, detail string) *IntegrityError {
	return &IntegrityError{Entity: entity, Detail: detail}
}

// ValidationError represents an error that occurred during validation
// of inbound data. It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
