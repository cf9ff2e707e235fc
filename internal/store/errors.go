package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all job store implementations.
var (
	// ErrJobNotFound is returned when the requested job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists is returned when creating a job whose ID is already taken.
	ErrJobExists = errors.New("job already exists")

	// ErrVersionConflict signals that a compare-and-retry commit lost the race.
	// Implementations retry internally; callers only see it once the retry
	// budget is exhausted.
	ErrVersionConflict = errors.New("job version conflict")

	// ErrSubscriptionClosed is returned when subscribing through a store that
	// has been shut down.
	ErrSubscriptionClosed = errors.New("store no longer accepts subscriptions")
)

// StoreError wraps a backend failure with the operation that produced it.
type StoreError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job store %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("job store %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError for the given operation.
func NewStoreError(operation, message string, err error) *StoreError {
	return &StoreError{Operation: operation, Message: message, Err: err}
}
