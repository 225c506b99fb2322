package client

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{"client error should not retry", ErrorClassClient, false},
		{"unexpected status should not retry", ErrorClassUnexpected, false},
		{"server error should retry", ErrorClassServer, true},
		{"rate limit should retry", ErrorClassRateLimit, true},
		{"network error should retry", ErrorClassNetwork, true},
		{"empty error class should not retry", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := shouldRetry(tt.errorClass); result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{200, ""},
		{204, ""},
		{299, ""},
		{199, ErrorClassUnexpected},
		{300, ErrorClassUnexpected},
		{301, ErrorClassUnexpected},
		{304, ErrorClassUnexpected},
		{400, ErrorClassClient},
		{401, ErrorClassClient},
		{404, ErrorClassClient},
		{422, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.expected {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestClassOf(t *testing.T) {
	apiErr := &APIError{StatusCode: 503, ErrorClass: ErrorClassServer}
	netErr := &NetworkError{Method: "GET", Endpoint: "/lists", Err: io.EOF}

	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"api error", apiErr, ErrorClassServer},
		{"wrapped api error", fmt.Errorf("fetch page 2: %w", apiErr), ErrorClassServer},
		{"network error", netErr, ErrorClassNetwork},
		{"plain error", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classOf(tt.err); got != tt.expected {
				t.Errorf("classOf() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{
		Method:     "GET",
		Endpoint:   "/subscribers/1",
		StatusCode: 404,
		ErrorClass: ErrorClassClient,
		Message:    "Not found",
	}

	expected := "NetSendo client error (status 404) for GET /subscribers/1: Not found"
	if got := err.Error(); got != expected {
		t.Errorf("Error() = %q, want %q", got, expected)
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Method: "GET", Endpoint: "/lists", Err: io.ErrUnexpectedEOF}

	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("wrap: %w", &APIError{StatusCode: 404})) {
		t.Error("wrapped 404 should be not found")
	}
	if IsNotFound(&APIError{StatusCode: 410}) {
		t.Error("410 should not be not found")
	}
	if IsNotFound(errors.New("404")) {
		t.Error("plain error should not be not found")
	}
}
