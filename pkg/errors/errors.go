// Package errors provides structured error types for vizlab.
//
// Every failure that crosses a pipeline boundary carries a machine-readable
// [Code] so callers can tell a missing file from a malformed row from a bad
// canvas size without string matching:
//
//   - data-fetch failures: FILE_NOT_FOUND, NETWORK_ERROR, INVALID_TOPOLOGY
//   - malformed input: INVALID_RECORD, INVALID_INPUT
//   - layout preconditions: INVALID_CANVAS, EMPTY_HIERARCHY, INVALID_BOUNDARY, INVALID_STATE
//   - option validation: INVALID_FORMAT, INVALID_STYLE, INVALID_PROJECTION, INVALID_POLICY
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidCanvas, "size %v too small for padding %v", size, pad)
//	if errors.Is(err, errors.ErrCodeInvalidCanvas) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidRecord     Code = "INVALID_RECORD"
	ErrCodeInvalidFormat     Code = "INVALID_FORMAT"
	ErrCodeInvalidStyle      Code = "INVALID_STYLE"
	ErrCodeInvalidProjection Code = "INVALID_PROJECTION"
	ErrCodeInvalidPolicy     Code = "INVALID_POLICY"
	ErrCodeInvalidPath       Code = "INVALID_PATH"

	// Layout precondition errors
	ErrCodeInvalidCanvas   Code = "INVALID_CANVAS"
	ErrCodeEmptyHierarchy  Code = "EMPTY_HIERARCHY"
	ErrCodeInvalidBoundary Code = "INVALID_BOUNDARY"
	ErrCodeInvalidState    Code = "INVALID_STATE"

	// Data-fetch errors
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeInvalidTopology Code = "INVALID_TOPOLOGY"
	ErrCodeNetwork         Code = "NETWORK_ERROR"
	ErrCodeTimeout         Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsDataFetch reports whether err belongs to the data-fetch category
// (missing file, network failure, unreadable topology).
func IsDataFetch(err error) bool {
	switch GetCode(err) {
	case ErrCodeFileNotFound, ErrCodeNetwork, ErrCodeTimeout, ErrCodeInvalidTopology:
		return true
	}
	return false
}
