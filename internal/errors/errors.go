// Package errors provides custom error types and error handling utilities.
// Following Go idioms, errors are values that carry context about what went wrong.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for the engine.
// These can be checked with errors.Is() for specific error handling.
var (
	// ErrNotFound indicates no Record exists at the given path.
	ErrNotFound = errors.New("download not found")

	// ErrInvalidPath indicates a malformed or non-absolute path argument.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidURL indicates an invalid or malformed URL.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrTransferFailed indicates a worker-observed HTTP/IO/partial-support
	// error. Never returned synchronously; surfaced only as a Cancelled
	// event, per spec.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrTimeout indicates a connect or idle-read timeout.
	ErrTimeout = errors.New("operation timed out")

	// ErrCancelled indicates an operation was cancelled by the caller.
	ErrCancelled = errors.New("operation cancelled")
)

// AppError is a structured error type that carries additional context.
type AppError struct {
	Op      string // Operation that failed (e.g., "Engine.Start")
	Err     error  // Underlying error
	Message string // User-friendly message
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap allows errors.Is and errors.As to work with wrapped errors.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the given operation and error.
func New(op string, err error) *AppError {
	return &AppError{Op: op, Err: err}
}

// NewWithMessage creates a new AppError with a user-friendly message.
func NewWithMessage(op string, err error, message string) *AppError {
	return &AppError{Op: op, Err: err, Message: message}
}

// Wrap wraps an existing error with operation context.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Op: op, Err: err}
}

// WrapWithMessage wraps an error with a user-friendly message.
func WrapWithMessage(op string, err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Op: op, Err: err, Message: message}
}

// IsNotFound checks if an error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCancelled checks if an error is a cancellation error.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
