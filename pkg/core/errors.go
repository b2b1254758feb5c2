// Package core provides the memory engine: the Store, Retriever and Bridge
// components and the Client that wires them to a storage backend.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested memory was not found. It is only
	// returned by operations that must act on an existing row (Redact,
	// ResolveSignal); lookups return nil instead.
	ErrNotFound = errors.New("memory not found")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates that a connection to the storage backend failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidInput indicates that a required field is missing or out of
	// range. It is always returned before any storage I/O.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageOperation indicates that a storage operation failed.
	ErrStorageOperation = errors.New("storage operation failed")
)

// MemoryError wraps errors with operation context.
//
// It provides additional context about which operation failed,
// making error messages more informative for debugging.
//
// Example:
//
//	err := &MemoryError{
//	    Op:  "Retrieve",
//	    Err: ErrInvalidInput,
//	}
//	// Error() returns: "agentrecall: Retrieve: invalid input"
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "agentrecall: <Op>: <Err>"
func (e *MemoryError) Error() string {
	return fmt.Sprintf("agentrecall: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with MemoryError.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewMemoryError("Store", err)
//	}
//
// Returns a MemoryError, or nil if err is nil.
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{
		Op:  op,
		Err: err,
	}
}

// IsValidationError reports whether err was caused by invalid input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsStoreError reports whether err was caused by a failing storage backend.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStorageOperation)
}

// invalidInput builds a validation error for op.
func invalidInput(op, format string, args ...interface{}) error {
	return NewMemoryError(op, fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...)))
}

// storeFailure wraps a backend error so that both ErrStorageOperation and
// the backend cause match errors.Is.
func storeFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewMemoryError(op, fmt.Errorf("%w: %w", ErrStorageOperation, err))
}
