// Package dErrors provides coded domain errors for the governance core.
//
// Codes classify failures the way callers need to branch on them: invalid
// input at a trust boundary, invariant violations (programmer errors that
// must abort the operation), integrity violations detected in the audit
// chain, and internal faults. Policy denials are NOT errors - services
// return structured decision results for those, since "not allowed" is a
// routine outcome, not a fault.
package dErrors

import (
	"errors"
	"fmt"
)

// Code identifies the class of a domain error.
type Code string

const (
	// CodeInvalidInput marks input rejected at a trust boundary.
	CodeInvalidInput Code = "invalid_input"

	// CodeInvariantViolation marks a programmer error: an operation was
	// attempted against a value in a state that must never occur (e.g.
	// asserting the wrong deployment class). These abort the operation.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeIntegrityViolation marks a detected tamper condition in the
	// audit chain. Detected, surfaced, never auto-corrected.
	CodeIntegrityViolation Code = "integrity_violation"

	// CodeNotFound marks a missing domain entity.
	CodeNotFound Code = "not_found"

	// CodeUnauthorized marks a request whose token could not be validated.
	CodeUnauthorized Code = "unauthorized"

	// CodeUnavailable marks a dependency that could not be reached.
	CodeUnavailable Code = "unavailable"

	// CodeInternal marks an unexpected internal fault.
	CodeInternal Code = "internal"
)

// Error is a domain error with a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or CodeInternal when err is not a
// domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
