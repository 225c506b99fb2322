package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	remainingGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netsendo_rate_limit_remaining",
		Help: "Requests remaining in the current NetSendo rate limit window",
	}, []string{"scope"})

	blocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsendo_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the quota was exhausted",
	})

	throttlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsendo_rate_limit_throttles_total",
		Help: "Total number of requests delayed because the quota was low",
	})
)

// stateTTL bounds how long a snapshot lives in Redis.
const stateTTL = 10 * time.Minute

// Tracker monitors the NetSendo quota for one API key and gates requests.
type Tracker struct {
	redis         *redis.Client
	prefix        string
	scope         string
	throttleDelay time.Duration
	now           func() time.Time
	logger        zerolog.Logger
}

// NewTracker creates a tracker whose Redis keys are namespaced by scope
// (typically a fingerprint of the API key).
func NewTracker(redisClient *redis.Client, scope string, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		prefix:        "netsendo:rate_limit:" + scope + ":",
		scope:         scope,
		throttleDelay: time.Second,
		now:           time.Now,
		logger:        logger,
	}
}

// SetThrottleDelay changes how long a throttled request waits.
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttleDelay = d
}

func (t *Tracker) key(suffix string) string {
	return t.prefix + suffix
}

// GetState retrieves the current state from Redis.
// A missing or expired window yields a default healthy state.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	now := t.now()
	healthy := &RateLimitState{
		Remaining:  RemainingWarning * 20,
		ResetAt:    now.Add(DefaultWindow),
		LastUpdate: now,
		IsHealthy:  true,
	}

	values, err := t.redis.MGet(ctx,
		t.key(keyLimit), t.key(keyRemaining), t.key(keyResetAt), t.key(keyLastUpdate),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	if values[1] == nil || values[2] == nil {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return healthy, nil
	}

	state := &RateLimitState{}
	if values[0] != nil {
		if state.Limit, err = strconv.Atoi(fmt.Sprint(values[0])); err != nil {
			return nil, fmt.Errorf("parse limit: %w", err)
		}
	}
	if state.Remaining, err = strconv.Atoi(fmt.Sprint(values[1])); err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	resetUnix, err := strconv.ParseInt(fmt.Sprint(values[2]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse reset timestamp: %w", err)
	}
	state.ResetAt = time.Unix(resetUnix, 0)

	if values[3] != nil {
		if err := json.Unmarshal([]byte(fmt.Sprint(values[3])), &state.LastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	if state.WindowExpired(now) {
		return healthy, nil
	}

	state.UpdateHealth()
	return state, nil
}

// UpdateFromHeaders parses the quota headers of a response and stores the
// resulting state. Responses without X-RateLimit-Remaining are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(strings.TrimSpace(remainStr))
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	limit := 0
	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		if limit, err = strconv.Atoi(strings.TrimSpace(limitStr)); err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
	}

	now := t.now()
	resetAt, err := ResetTime(headers, now)
	if err != nil {
		return err
	}

	state := &RateLimitState{
		Limit:      limit,
		Remaining:  remain,
		ResetAt:    resetAt,
		LastUpdate: now,
	}
	state.UpdateHealth()

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, t.key(keyLimit), limit, stateTTL)
	pipe.Set(ctx, t.key(keyRemaining), remain, stateTTL)
	pipe.Set(ctx, t.key(keyResetAt), state.ResetAt.Unix(), stateTTL)
	pipe.Set(ctx, t.key(keyLastUpdate), lastUpdateJSON, stateTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	remainingGauge.WithLabelValues(t.scope).Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock(now):
		t.logger.Error().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("NetSendo quota exhausted - requests will be blocked")
	case state.NeedsThrottling(now):
		t.logger.Warn().
			Int("remaining", remain).
			Int("limit", limit).
			Msg("NetSendo quota low - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Int("limit", limit).
			Bool("is_healthy", state.IsHealthy).
			Msg("NetSendo quota state updated")
	}

	return nil
}

// ShouldAllowRequest reports whether a request may be sent now. It returns
// false while the quota is exhausted, and waits throttleDelay (or until ctx is
// done) before allowing a request when the quota is low.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	now := t.now()
	if state.NeedsCriticalBlock(now) {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("NetSendo quota exhausted - blocking request")
		blocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling(now) {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("NetSendo quota low - throttling request")
		throttlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}

// ResetTime derives the window reset from Retry-After (seconds or HTTP date),
// then X-RateLimit-Reset (unix seconds), falling back to DefaultWindow.
func ResetTime(headers http.Header, now time.Time) (time.Time, error) {
	if ra := RetryAfter(headers, now); ra > 0 {
		return now.Add(ra), nil
	}

	if resetStr := strings.TrimSpace(headers.Get(HeaderReset)); resetStr != "" {
		unix, err := strconv.ParseInt(resetStr, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse %s header: %w", HeaderReset, err)
		}
		return time.Unix(unix, 0), nil
	}

	return now.Add(DefaultWindow), nil
}

// RetryAfter returns the wait requested by a Retry-After header, or 0.
func RetryAfter(headers http.Header, now time.Time) time.Duration {
	value := strings.TrimSpace(headers.Get(HeaderRetryAfter))
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
