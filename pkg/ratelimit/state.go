// Package ratelimit tracks NetSendo's request quota and gates outgoing calls.
// It reads the X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset and
// Retry-After headers emitted by the Laravel throttle middleware and shares the
// resulting state between processes through Redis.
package ratelimit

import (
	"time"
)

// Response headers emitted by the NetSendo API.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// Redis key suffixes, appended to "netsendo:rate_limit:<scope>:".
const (
	keyLimit      = "limit"
	keyRemaining  = "remaining"
	keyResetAt    = "reset_at"
	keyLastUpdate = "last_update"
)

// DefaultWindow is the Laravel throttle decay used when no reset hint is sent.
const DefaultWindow = 60 * time.Second

// Thresholds for throttling decisions when the limit is unknown.
const (
	// RemainingWarning throttles requests below this many remaining calls.
	RemainingWarning = 5

	// WarningRatio throttles when fewer than this fraction of the limit remains.
	WarningRatio = 0.1

	// HealthyRatio marks the window healthy at or above this fraction.
	HealthyRatio = 0.25
)

// RateLimitState is the quota snapshot for one API key.
type RateLimitState struct {
	// Limit is the window size from X-RateLimit-Limit (0 when unknown).
	Limit int `json:"limit"`

	// Remaining is the number of calls left in the window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the state was last written.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true while plenty of quota is left.
	IsHealthy bool `json:"is_healthy"`
}

// WindowExpired reports whether the quota window has already reset.
func (s *RateLimitState) WindowExpired(now time.Time) bool {
	return !s.ResetAt.After(now)
}

// NeedsCriticalBlock returns true when the quota is used up and the window
// has not reset yet.
func (s *RateLimitState) NeedsCriticalBlock(now time.Time) bool {
	return s.Remaining <= 0 && !s.WindowExpired(now)
}

// NeedsThrottling returns true when the quota is low but not exhausted.
func (s *RateLimitState) NeedsThrottling(now time.Time) bool {
	if s.Remaining <= 0 || s.WindowExpired(now) {
		return false
	}
	if s.Limit > 0 {
		return float64(s.Remaining) < float64(s.Limit)*WarningRatio
	}
	return s.Remaining < RemainingWarning
}

// TimeUntilReset returns the duration until the window resets, or 0.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth recomputes IsHealthy from Remaining and Limit.
func (s *RateLimitState) UpdateHealth() {
	if s.Limit > 0 {
		s.IsHealthy = float64(s.Remaining) >= float64(s.Limit)*HealthyRatio
		return
	}
	s.IsHealthy = s.Remaining >= RemainingWarning
}
