package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur during external service
// and store interactions.
var (
	// ErrNotFound indicates that a requested record does not exist.
	// It is distinct from computation failures on present records.
	ErrNotFound = errors.New("record not found")

	// ErrServiceUnavailable indicates that an external service is
	// unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that an external service returned an
	// invalid response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrAuthenticationFailed indicates that authentication with an
	// external service failed.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// StoreError represents an error from a persistence operation.
// It includes the collection and operation that failed.
type StoreError struct {
	// Collection is the logical record collection involved in the failed
	// operation.
	Collection string

	// Operation is the name of the store operation that failed.
	Operation string

	// Err is the underlying error that caused the operation to fail.
	Err error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: operation=%s, collection=%s, err=%v", e.Operation, e.Collection, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a new StoreError with the given details.
func NewStoreError(collection, operation string, err error) *StoreError {
	return &StoreError{
		Collection: collection,
		Operation:  operation,
		Err:        err,
	}
}

// EvaluationError represents an error from the external code-evaluation
// service.
type EvaluationError struct {
	// SubmissionID identifies the candidate submission being evaluated.
	SubmissionID string

	// Operation is the name of the operation that failed.
	Operation string

	// Err is the underlying error that occurred.
	Err error
}

// Error implements the error interface for EvaluationError.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error: submission=%s, operation=%s, err=%v", e.SubmissionID, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *EvaluationError) Unwrap() error { return e.Err }

// IsRetryable returns true if the error is temporary and the operation
// can be retried.
func (e *EvaluationError) IsRetryable() bool {
	// Only network/service-level errors are retryable; logic errors are not.
	return errors.Is(e.Err, ErrServiceUnavailable) || errors.Is(e.Err, ErrTimeout)
}

// NewEvaluationError creates a new EvaluationError with the given
// details.
func NewEvaluationError(submissionID, operation string, err error) *EvaluationError {
	return &EvaluationError{
		SubmissionID: submissionID,
		Operation:    operation,
		Err:          err,
	}
}
