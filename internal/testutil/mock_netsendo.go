// Package testutil provides a mock NetSendo server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock NetSendo endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request the mock server received.
type RecordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body into a map.
func (r RecordedRequest) JSON() map[string]any {
	var out map[string]any
	_ = json.Unmarshal(r.Body, &out)
	return out
}

// MockNetSendo is a configurable mock NetSendo API. Handlers are keyed by
// "METHOD /path" relative to /api/v1.
type MockNetSendo struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// APIPrefix is the path prefix every NetSendo endpoint lives under.
const APIPrefix = "/api/v1"

// NewMockNetSendo starts a new mock server.
func NewMockNetSendo() *MockNetSendo {
	mock := &MockNetSendo{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		path := r.URL.Path
		if len(path) >= len(APIPrefix) && path[:len(APIPrefix)] == APIPrefix {
			path = path[len(APIPrefix):]
		}

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		handler, exists := mock.handlers[r.Method+" "+path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"message":"No mock for %s %s"}`, r.Method, path)
	}))

	return mock
}

// URL returns the installation base URL (without /api/v1).
func (m *MockNetSendo) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockNetSendo) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockNetSendo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// Handle sets a custom handler for method and path.
func (m *MockNetSendo) Handle(method, path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method+" "+path] = handler
}

// SetResponse configures a fixed response for method and path.
func (m *MockNetSendo) SetResponse(method, path string, resp MockResponse) {
	m.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON configures a 200 response carrying v encoded as JSON.
func (m *MockNetSendo) SetJSON(method, path string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	m.SetResponse(method, path, NewJSONResponse(string(data)))
}

// SetPages serves a Laravel-paginated collection on GET path. The page query
// parameter selects the slice; pages past the end return empty data.
func (m *MockNetSendo) SetPages(path string, pages [][]map[string]any) {
	m.Handle(http.MethodGet, path, func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		data := []map[string]any{}
		if page <= len(pages) {
			data = pages[page-1]
		}
		resp := map[string]any{
			"data": data,
			"meta": map[string]any{
				"current_page": page,
				"last_page":    len(pages),
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
}

// Requests returns a copy of every recorded request.
func (m *MockNetSendo) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests made to the server.
func (m *MockNetSendo) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or false if there was none.
func (m *MockNetSendo) LastRequest() (RecordedRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// NewJSONResponse creates a standard 200 OK JSON response with quota headers.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "60",
			"X-RateLimit-Remaining": "59",
			"Content-Type":          "application/json",
		},
	}
}

// NewNoContentResponse creates a 204 response.
func NewNoContentResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusNoContent}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "Too Many Attempts."}`,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "60",
			"X-RateLimit-Remaining": "0",
			"Retry-After":           strconv.Itoa(retryAfter),
			"Content-Type":          "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Server Error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewErrorResponse creates an error response carrying a Laravel message.
func NewErrorResponse(status int, message string) MockResponse {
	data, _ := json.Marshal(map[string]string{"message": message})
	return MockResponse{
		StatusCode: status,
		Body:       string(data),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}
