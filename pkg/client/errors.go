package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRateLimited is returned when the shared quota is exhausted.
	ErrRateLimited = errors.New("request blocked: rate limit exhausted")

	// ErrMalformedBody is returned when a success response is not valid JSON.
	ErrMalformedBody = errors.New("malformed response body")

	// ErrInvalidCredentials is returned for incomplete or malformed credentials.
	ErrInvalidCredentials = errors.New("invalid netsendo credentials")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnexpected represents 1xx/3xx statuses net/http hands back unfollowed.
	ErrorClassUnexpected ErrorClass = "unexpected_status"
)

// APIError is a non-2xx response from NetSendo.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Body       []byte
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("NetSendo %s error (status %d) for %s %s: %s",
		e.ErrorClass, e.StatusCode, e.Method, e.Endpoint, e.Message)
}

// NetworkError wraps a transport failure.
type NetworkError struct {
	Method   string
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("NetSendo network error for %s %s: %v", e.Method, e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from NetSendo.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// classOf extracts the ErrorClass carried by err.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return ErrorClassNetwork
	}
	return ""
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx means the request itself is wrong
		return false
	}
}

// classifyStatus maps an HTTP status to an ErrorClass ("" for 2xx only).
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 429:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	case status < 200 || status >= 300:
		return ErrorClassUnexpected
	default:
		return ""
	}
}
