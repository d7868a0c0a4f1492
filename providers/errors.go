package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrorType classifies a provider failure for retry policy decisions.
type ErrorType string

const (
	// ErrorRateLimit is an HTTP 429; transient.
	ErrorRateLimit ErrorType = "rate_limit"
	// ErrorTimeout is a request deadline or network timeout; transient.
	ErrorTimeout ErrorType = "timeout"
	// ErrorServer is an HTTP 5xx; transient.
	ErrorServer ErrorType = "server"
	// ErrorAuth is an HTTP 401/403; permanent.
	ErrorAuth ErrorType = "auth"
	// ErrorBadRequest is an HTTP 400/404/422; permanent.
	ErrorBadRequest ErrorType = "bad_request"
	// ErrorMalformedResponse means the provider replied but the body could not
	// be parsed into the expected shape; permanent for that call.
	ErrorMalformedResponse ErrorType = "malformed_response"
)

// ProviderError is a classified failure from an LLM provider call.
type ProviderError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	// RetryAfter is the server-suggested wait, when present (429 responses).
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error (%s, HTTP %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Type, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying with backoff.
func (e *ProviderError) Transient() bool {
	switch e.Type {
	case ErrorRateLimit, ErrorTimeout, ErrorServer:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err is a retryable provider failure.
// Context deadline errors count as transient timeouts; unclassified errors
// are treated as permanent so unknown failures never loop.
func IsTransient(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return false
}

// ErrType returns the classification of err, or an empty string when err is
// not a provider error.
func ErrType(err error) ErrorType {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Type
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	return ""
}

// ClassifyHTTP maps an HTTP status code and response body to a ProviderError.
func ClassifyHTTP(statusCode int, body []byte) *ProviderError {
	msg := string(body)
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &ProviderError{Type: ErrorRateLimit, StatusCode: statusCode, Message: msg}
	case statusCode == http.StatusRequestTimeout:
		return &ProviderError{Type: ErrorTimeout, StatusCode: statusCode, Message: msg}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &ProviderError{Type: ErrorAuth, StatusCode: statusCode, Message: msg}
	case statusCode >= 500:
		return &ProviderError{Type: ErrorServer, StatusCode: statusCode, Message: msg}
	default:
		return &ProviderError{Type: ErrorBadRequest, StatusCode: statusCode, Message: msg}
	}
}
