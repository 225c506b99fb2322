// Package client is the NetSendo REST transport: authenticated JSON requests
// with retry, client-side pacing, shared quota tracking and error
// classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/netsendo-nodes/pkg/model"
	"github.com/Sternrassler/netsendo-nodes/pkg/pagination"
	"github.com/Sternrassler/netsendo-nodes/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for NetSendo client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netsendo_requests_total",
		Help: "Total NetSendo requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netsendo_request_duration_seconds",
		Help:    "NetSendo request duration in seconds by method",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netsendo_errors_total",
		Help: "Total NetSendo errors by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netsendo_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netsendo_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netsendo_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// Client performs authenticated requests against one NetSendo installation.
type Client struct {
	httpClient  *http.Client
	credentials Credentials
	apiRoot     string
	limiter     *rate.Limiter
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Credentials for the installation (required)
	Credentials Credentials

	// Redis client for the shared quota tracker (optional)
	Redis *redis.Client

	// User-Agent header
	UserAgent string

	// RateLimit is the client-side request rate in requests per second (0 disables pacing)
	RateLimit float64
	Burst     int

	// Timeout per HTTP attempt
	Timeout time.Duration

	// Retry policy for idempotent requests
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(creds Credentials) Config {
	return Config{
		Credentials: creds,
		UserAgent:   "netsendo-nodes/1.0",
		RateLimit:   10,
		Burst:       5,
		Timeout:     30 * time.Second,
		Retry:       DefaultRetryConfig(),
	}
}

// New creates a new NetSendo client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %v)", cfg.RateLimit)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().
		Str("component", "netsendo-client").
		Str("scope", cfg.Credentials.Fingerprint()).
		Logger()

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		credentials: cfg.Credentials,
		apiRoot:     cfg.Credentials.APIRoot(),
		limiter:     limiter,
		config:      cfg,
		logger:      logger,
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, cfg.Credentials.Fingerprint(), logger)
	}

	return c, nil
}

// Do performs one JSON request. body is sent only when non-empty; query is
// appended to the URL. Non-2xx responses become *APIError, transport failures
// *NetworkError and undecodable success bodies ErrMalformedBody. A top-level
// JSON array is returned as {"data": [...]}.
func (c *Client) Do(ctx context.Context, method, endpoint string, body model.Item, query url.Values) (model.Item, error) {
	raw, err := c.do(ctx, method, endpoint, body, query)
	if err != nil {
		return nil, err
	}
	return decodeItem(raw, method, endpoint)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (model.Item, error) {
	return c.Do(ctx, http.MethodGet, endpoint, nil, query)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, endpoint string, body model.Item) (model.Item, error) {
	return c.Do(ctx, http.MethodPost, endpoint, body, nil)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, endpoint string, body model.Item) (model.Item, error) {
	return c.Do(ctx, http.MethodPut, endpoint, body, nil)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string) (model.Item, error) {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// FetchPage implements pagination.PageFetcher.
func (c *Client) FetchPage(ctx context.Context, path string, query url.Values) (*pagination.PageResponse, error) {
	raw, err := c.do(ctx, http.MethodGet, path, nil, query)
	if err != nil {
		return nil, err
	}

	var page pagination.PageResponse
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &page, nil
	}
	// a bare array carries no data key and no meta: zero items, one page
	if trimmed[0] == '[' {
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("%w: GET %s: invalid JSON array", ErrMalformedBody, path)
		}
		return &page, nil
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrMalformedBody, path, err)
	}
	return &page, nil
}

// TestCredentials issues the credential test request (GET /lists).
func (c *Client) TestCredentials(ctx context.Context) error {
	_, err := c.Get(ctx, DescribeCredentials().TestEndpoint, nil)
	return err
}

// APIRoot returns the resolved API root, e.g. https://host/api/v1.
func (c *Client) APIRoot() string {
	return c.apiRoot
}

// Credentials returns the credentials the client was built with.
func (c *Client) Credentials() Credentials {
	return c.credentials
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body model.Item, query url.Values) ([]byte, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	var payload []byte
	if len(body) > 0 {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	target := c.apiRoot + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	retryCfg := c.config.Retry
	if !isIdempotent(method) {
		retryCfg.MaxAttempts = 1
	}

	logger := c.logger.With().Str("method", method).Str("endpoint", endpoint).Logger()

	var result []byte
	err := retryWithBackoff(ctx, retryCfg, logger, func() error {
		if err := c.awaitQuota(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req, payload != nil)

		logger.Debug().Msg("Executing NetSendo request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &NetworkError{Method: method, Endpoint: endpoint, Err: err}
		}
		defer resp.Body.Close()

		if c.rateLimiter != nil {
			if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
				logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
			}
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return &NetworkError{Method: method, Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if class := classifyStatus(resp.StatusCode); class != "" {
			errorsTotal.WithLabelValues(string(class)).Inc()
			apiErr := &APIError{
				Method:     method,
				Endpoint:   endpoint,
				StatusCode: resp.StatusCode,
				ErrorClass: class,
				Message:    errorMessage(resp.Status, data),
				Body:       truncate(data, maxErrorBody),
				RetryAfter: ratelimit.RetryAfter(resp.Header, time.Now()),
			}
			logger.Warn().
				Int("status", resp.StatusCode).
				Str("error_class", string(class)).
				Msg("NetSendo request error")
			return apiErr
		}

		result = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// awaitQuota applies client-side pacing and the shared quota gate.
func (c *Client) awaitQuota(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	if c.rateLimiter == nil {
		return nil
	}

	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		// Redis trouble must not take the API down with it
		c.logger.Warn().Err(err).Msg("Rate limit check failed, allowing request")
		return nil
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Authorization", "Bearer "+c.credentials.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
}

func isIdempotent(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

func decodeItem(raw []byte, method, endpoint string) (model.Item, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return model.Item{}, nil
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrMalformedBody, method, endpoint, err)
	}

	switch v := decoded.(type) {
	case map[string]any:
		return v, nil
	default:
		return model.Item{"data": v}, nil
	}
}

// errorMessage prefers the "message" field Laravel puts in error bodies.
func errorMessage(status string, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return status
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
