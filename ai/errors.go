package ai

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed set of AI service error codes. Every provider
// failure is mapped onto one of these before it leaves the provider client;
// retry and circuit-breaker behavior is decided from the code alone, never
// from message text.
type ErrorCode string

const (
	ErrTimeout               ErrorCode = "TIMEOUT"
	ErrRateLimitExceeded     ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrAuthInvalidAPIKey     ErrorCode = "AUTH_INVALID_API_KEY"
	ErrAuthQuotaExceeded     ErrorCode = "AUTH_QUOTA_EXCEEDED"
	ErrValidationInvalid     ErrorCode = "VALIDATION_INVALID_REQUEST"
	ErrValidationContentFilt ErrorCode = "VALIDATION_CONTENT_FILTER"
	ErrServerInternal        ErrorCode = "SERVER_INTERNAL_ERROR"
	ErrServerUnavailable     ErrorCode = "SERVER_UNAVAILABLE"
	ErrNetworkConnection     ErrorCode = "NETWORK_CONNECTION_ERROR"
	ErrUnknown               ErrorCode = "UNKNOWN_ERROR"
)

// Retryable reports whether a call failing with this code may be attempted
// again. Only transient infrastructure failures qualify; caller-attributable
// failures (bad key, bad request, exhausted quota) cannot be fixed by
// retrying. UNKNOWN_ERROR is treated conservatively as non-retryable.
func (c ErrorCode) Retryable() bool {
	switch c {
	case ErrTimeout, ErrRateLimitExceeded, ErrNetworkConnection,
		ErrServerInternal, ErrServerUnavailable:
		return true
	default:
		return false
	}
}

// CountsTowardBreaker reports whether a failure with this code erodes the
// provider's circuit-breaker health budget. The set is identical to the
// retryable set: caller-attributable failures say nothing about provider
// health.
func (c ErrorCode) CountsTowardBreaker() bool {
	return c.Retryable()
}

// Error is the structured error shared by all provider clients and the
// service manager.
type Error struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"http_status,omitempty"`
	Provider   ProviderID     `json:"provider,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithProvider sets the provider the error originated from.
func (e *Error) WithProvider(p ProviderID) *Error {
	e.Provider = p
	return e
}

// WithHTTPStatus records the upstream HTTP status.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetails attaches provider-specific detail fields. Details must never
// contain credentials or raw provider response bodies.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or UNKNOWN_ERROR when err is not
// a *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}

// IsRetryable reports whether err may be retried, per its error code.
func IsRetryable(err error) bool {
	return CodeOf(err).Retryable()
}

// CountsTowardBreaker reports whether err counts against the circuit
// breaker of the provider it came from.
func CountsTowardBreaker(err error) bool {
	return CodeOf(err).CountsTowardBreaker()
}
