package reins

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCategory tells callers how to react to a failure: retry it, give
// up, or fix the request.
type ErrorCategory string

const (
	// ErrorTransient marks failures worth retrying: rate limits, flaky
	// network hops, short-lived server overload.
	ErrorTransient ErrorCategory = "transient"

	// ErrorPermanent marks failures a retry cannot fix, such as a bad
	// API key, missing permissions, or an unknown model.
	ErrorPermanent ErrorCategory = "permanent"

	// ErrorUserInput marks failures caused by the request itself; the
	// caller must correct it before trying again.
	ErrorUserInput ErrorCategory = "user_input"
)

// CategorizedError exposes handling metadata alongside the error message.
// The retry package and provider adapters speak this interface rather than
// concrete error types.
type CategorizedError interface {
	error
	Category() ErrorCategory
	Retryable() bool           // convenience: returns true if Category == ErrorTransient
	StatusCode() int           // HTTP status code if applicable, 0 otherwise
	RetryAfter() time.Duration // suggested retry delay from server, 0 if not available
}

// Error is the standard CategorizedError implementation used throughout
// the module and its provider adapters.
type Error struct {
	Msg        string
	Cat        ErrorCategory
	Code       int           // HTTP status code, 0 if not applicable
	RetryDelay time.Duration // from Retry-After header, 0 if not available
	Cause      error         // underlying error
}

// Error formats the message, appending the cause when one is recorded.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.Cat
}

// Retryable returns true if the error is transient and can be retried.
func (e *Error) Retryable() bool {
	return e.Cat == ErrorTransient
}

// StatusCode returns the HTTP status code, or 0 if not applicable.
func (e *Error) StatusCode() int {
	return e.Code
}

// RetryAfter returns the suggested retry delay, or 0 if not available.
func (e *Error) RetryAfter() time.Duration {
	return e.RetryDelay
}

// NewTransientError builds a retryable error.
func NewTransientError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Msg:   msg,
		Cat:   ErrorTransient,
		Code:  statusCode,
		Cause: cause,
	}
}

// NewTransientErrorWithRetry builds a retryable error carrying the
// server's suggested delay, typically lifted from a Retry-After header.
func NewTransientErrorWithRetry(msg string, statusCode int, retryAfter time.Duration, cause error) *Error {
	return &Error{
		Msg:        msg,
		Cat:        ErrorTransient,
		Code:       statusCode,
		RetryDelay: retryAfter,
		Cause:      cause,
	}
}

// NewPermanentError builds an error no retry will fix.
func NewPermanentError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Msg:   msg,
		Cat:   ErrorPermanent,
		Code:  statusCode,
		Cause: cause,
	}
}

// NewUserInputError builds an error blaming the request itself.
func NewUserInputError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Msg:   msg,
		Cat:   ErrorUserInput,
		Code:  statusCode,
		Cause: cause,
	}
}

// IsTransient reports whether err, anywhere in its chain, is categorized
// as transient.
func IsTransient(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorTransient
	}
	return false
}

// IsPermanent reports whether err, anywhere in its chain, is categorized
// as permanent.
func IsPermanent(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorPermanent
	}
	return false
}

// IsUserInput reports whether err, anywhere in its chain, is categorized
// as a caller-input error.
func IsUserInput(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorUserInput
	}
	return false
}

// StatusCodeOf returns the HTTP status code from a categorized error, or 0.
func StatusCodeOf(err error) int {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.StatusCode()
	}
	return 0
}

// RetryAfterOf returns the retry delay from a categorized error, or 0.
func RetryAfterOf(err error) time.Duration {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.RetryAfter()
	}
	return 0
}
