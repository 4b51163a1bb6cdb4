package models

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Errorf wraps a formatted cause under the base code.
func Errorf(base *Error, format string, args ...any) *Error {
	return WrapError(base, fmt.Errorf(format, args...))
}

var (
	// Not enough history for a statistical test or filter initialization.
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data"}
	// Kalman covariance or innovation variance became invalid.
	ErrFilterDivergence = &Error{Code: "FILTER_DIVERGENCE", Message: "filter diverged"}
	// Invalid parameters; fatal at startup.
	ErrConfiguration = &Error{Code: "CONFIGURATION", Message: "invalid configuration"}
	// One leg of a pair has no price for a bar.
	ErrMissingPrice = &Error{Code: "MISSING_PRICE", Message: "missing price"}
	// Series passed to a screen are not timestamp-aligned.
	ErrMisaligned = &Error{Code: "MISALIGNED_SERIES", Message: "series are not aligned"}
	// A second position was requested on a pair that is already open.
	ErrPositionExists = &Error{Code: "POSITION_EXISTS", Message: "position already open"}
	// The run was cancelled before finalization.
	ErrInterrupted = &Error{Code: "INTERRUPTED", Message: "backtest interrupted"}
)
