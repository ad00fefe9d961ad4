// Package errors provides domain-specific error types.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for domain errors.
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeSessionNotFound   = "SESSION_NOT_FOUND"
	ErrCodeSessionExpired    = "SESSION_EXPIRED"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeUpstreamAuth      = "UPSTREAM_AUTH_ERROR"
	ErrCodeUpstream          = "UPSTREAM_ERROR"
	ErrCodeUpstreamTimeout   = "UPSTREAM_TIMEOUT"
	ErrCodeDecryption        = "DECRYPTION_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
)

// DomainError represents a domain-specific error.
type DomainError struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	Details        string `json:"details,omitempty"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
	HTTPStatus     int    `json:"-"`

	// RetryAfter is set on rate limit errors, in whole seconds.
	RetryAfter int `json:"-"`

	Err error `json:"-"`
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewInvalidInputError creates a new invalid input error.
func NewInvalidInputError(message string, details string) *DomainError {
	return &DomainError{
		Code:       ErrCodeInvalidInput,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewSessionNotFoundError creates a new session not found error.
func NewSessionNotFoundError() *DomainError {
	return &DomainError{
		Code:       ErrCodeSessionNotFound,
		Message:    "session not found, please authenticate",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewSessionExpiredError creates a new session expired error.
func NewSessionExpiredError() *DomainError {
	return &DomainError{
		Code:       ErrCodeSessionExpired,
		Message:    "session expired, please authenticate again",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewRateLimitExceededError creates a new rate limit error. retryAfter is
// the number of whole seconds until the current window closes.
func NewRateLimitExceededError(retryAfter int) *DomainError {
	return &DomainError{
		Code:       ErrCodeRateLimitExceeded,
		Message:    "rate limit exceeded, retry later",
		Details:    fmt.Sprintf("retry after %ds", retryAfter),
		HTTPStatus: http.StatusTooManyRequests,
		RetryAfter: retryAfter,
	}
}

// NewUpstreamAuthError creates an error for a token rejected by Canvas.
func NewUpstreamAuthError(status int) *DomainError {
	return &DomainError{
		Code:           ErrCodeUpstreamAuth,
		Message:        "canvas rejected the credentials",
		UpstreamStatus: status,
		HTTPStatus:     http.StatusUnauthorized,
	}
}

// NewUpstreamError creates an error for a non-2xx Canvas response. body must
// already be redacted.
func NewUpstreamError(status int, body string) *DomainError {
	return &DomainError{
		Code:           ErrCodeUpstream,
		Message:        fmt.Sprintf("canvas returned status %d", status),
		Details:        body,
		UpstreamStatus: status,
		HTTPStatus:     http.StatusBadGateway,
	}
}

// NewUpstreamUnavailableError creates an error for a Canvas request that
// failed before any response was received.
func NewUpstreamUnavailableError(err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeUpstream,
		Message:    "canvas is unreachable",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewUpstreamTimeoutError creates a new upstream timeout error.
func NewUpstreamTimeoutError(operation string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeUpstreamTimeout,
		Message:    fmt.Sprintf("%s timed out", operation),
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

// NewDecryptionError creates a new decryption error. The message is generic
// on purpose and never carries the cause.
func NewDecryptionError(err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeDecryption,
		Message:    "stored credentials are unusable, please authenticate again",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInternalError creates a new internal error. The cause is kept for
// server-side logging only.
func NewInternalError(message string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, identifier string) *DomainError {
	return &DomainError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Details:    identifier,
		HTTPStatus: http.StatusNotFound,
	}
}

// IsDomainError checks if the error is a domain error.
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error.
func GetDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// HasCode reports whether err is a domain error with the given code.
func HasCode(err error, code string) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == code
}

// IsInvalidInput checks if the error is an invalid input error.
func IsInvalidInput(err error) bool {
	return HasCode(err, ErrCodeInvalidInput)
}

// IsSessionNotFound checks if the error is a session not found error.
func IsSessionNotFound(err error) bool {
	return HasCode(err, ErrCodeSessionNotFound)
}

// IsSessionExpired checks if the error is a session expired error.
func IsSessionExpired(err error) bool {
	return HasCode(err, ErrCodeSessionExpired)
}

// IsRateLimitExceeded checks if the error is a rate limit error.
func IsRateLimitExceeded(err error) bool {
	return HasCode(err, ErrCodeRateLimitExceeded)
}
