// Package errors provides the unified error type and factory functions for
// the clinsignal pipeline.  Every layer (intelligence, application,
// infrastructure, interfaces) uses AppError as the single carrier for
// structured error information, enabling consistent HTTP responses, logging,
// and metrics labels.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames
// above the caller (skipping captureStack itself and New/Wrap).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError — the canonical pipeline error type
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout clinsignal.
// It satisfies the standard error interface and supports Go 1.13+ error
// wrapping so that errors.Is / errors.As / errors.Unwrap work transparently
// across all layers.
//
// Usage:
//
//	return errors.InvalidInput("normalize", "empty text")
//	return errors.Wrap(httpErr, errors.ErrCodeOracleUnavailable, "span tagger unreachable")
type AppError struct {
	// Code is the typed error code identifying the failure category.
	Code ErrorCode

	// Message is the primary human-readable description, suitable for
	// inclusion in API responses.
	Message string

	// Detail carries supplementary context (operation name, offending input
	// excerpt) that aids debugging without leaking sensitive internals.
	Detail string

	// Cause is the underlying error, enabling errors.Is / errors.As traversal.
	Cause error

	// Stack is the formatted call stack captured at creation.  It is not
	// part of Error() output; structured logging middleware reads it directly.
	Stack string
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>", detail omitted when empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.
// Safe to call on a nil pointer.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Factory functions
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Newf constructs a fresh AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps an existing error.  If err is nil,
// Wrap returns nil so it can be used inline.  When err is already an
// *AppError and code is ErrCodeUnknown, the original code is preserved so
// the domain classification survives cross-layer propagation.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == ErrCodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// InvalidInput constructs an ErrCodeInvalidInput AppError carrying the
// operation name and an excerpt of the offending input in Detail.
func InvalidInput(operation, detail string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: operation + ": invalid input",
		Detail:  detail,
		Stack:   captureStack(1),
	}
}

// OracleUnavailable constructs an ErrCodeOracleUnavailable AppError for the
// named oracle capability.
func OracleUnavailable(oracle string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeOracleUnavailable,
		Message: oracle + " oracle unavailable",
		Cause:   cause,
		Stack:   captureStack(1),
	}
}

// MalformedOutput constructs an ErrCodeMalformedOracleOutput AppError.
// Use when an oracle returns offsets outside text bounds, NaN scores, or
// dimension-mismatched embeddings.
func MalformedOutput(oracle, detail string) *AppError {
	return &AppError{
		Code:    ErrCodeMalformedOracleOutput,
		Message: oracle + " oracle returned malformed output",
		Detail:  detail,
		Stack:   captureStack(1),
	}
}

// NotFound constructs an ErrCodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Internal constructs an ErrCodeInternal AppError.  Use for unexpected
// server-side failures where no more specific code applies.
func Internal(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Stack:   captureStack(1),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsInvalidInput reports whether err's chain contains ErrCodeInvalidInput.
func IsInvalidInput(err error) bool { return IsCode(err, ErrCodeInvalidInput) }

// IsOracleUnavailable reports whether err's chain contains
// ErrCodeOracleUnavailable.
func IsOracleUnavailable(err error) bool { return IsCode(err, ErrCodeOracleUnavailable) }

// IsMalformedOutput reports whether err's chain contains
// ErrCodeMalformedOracleOutput.
func IsMalformedOutput(err error) bool { return IsCode(err, ErrCodeMalformedOracleOutput) }

// IsNotFound reports whether err's chain contains ErrCodeNotFound.
func IsNotFound(err error) bool { return IsCode(err, ErrCodeNotFound) }

// GetCode extracts the ErrorCode from the first *AppError in err's chain.
// Returns ErrCodeOK for nil and ErrCodeUnknown when no AppError is present.
// Logging and metrics layers use this to emit a single code label without
// coupling to specific domain errors.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrCodeUnknown
}
