// Package ratelimit enforces the per-user vote rate limit: one vote per
// fixed window, tracked as a TTL-keyed timestamp in the shared cache so the
// limit holds across stateless instances.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/stackpitch/venturerank/internal/adapters/cache"
)

const (
	defaultWindow = 5 * time.Second
	keyPrefix     = "vote_rate_limit"
)

// Decision is the outcome of a rate-limit check. When not allowed,
// RetryAfter tells the caller how long to wait; it is always positive.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter answers whether a user may vote right now.
type Limiter interface {
	// Allow records the attempt when permitted. Infrastructure errors
	// fail open: a broken cache must not block voting.
	Allow(ctx context.Context, userID int64) (Decision, error)
}

// Option applies a configuration option to the CacheLimiter.
type Option func(*CacheLimiter)

// WithWindow sets the rate-limit window.
func WithWindow(w time.Duration) Option {
	return func(l *CacheLimiter) {
		if w > 0 {
			l.window = w
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *CacheLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// CacheLimiter implements Limiter over the TTL cache.
type CacheLimiter struct {
	cache  cache.Cache
	window time.Duration
	now    func() time.Time
}

// New creates a limiter with the default 5-second window.
func New(c cache.Cache, opts ...Option) *CacheLimiter {
	l := &CacheLimiter{
		cache:  c,
		window: defaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow checks and records a vote attempt for userID.
func (l *CacheLimiter) Allow(ctx context.Context, userID int64) (Decision, error) {
	key := fmt.Sprintf("%s:%d", keyPrefix, userID)
	now := l.now()

	raw, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("rate limit read: %w", err)
	}
	if ok {
		lastMillis, parseErr := strconv.ParseInt(string(raw), 10, 64)
		if parseErr == nil {
			elapsed := now.Sub(time.UnixMilli(lastMillis))
			if remaining := l.window - elapsed; remaining > 0 {
				return Decision{RetryAfter: ceilSeconds(remaining)}, nil
			}
		}
	}

	val := strconv.FormatInt(now.UnixMilli(), 10)
	if err := l.cache.Set(ctx, key, []byte(val), l.window); err != nil {
		return Decision{Allowed: true}, fmt.Errorf("rate limit write: %w", err)
	}
	return Decision{Allowed: true}, nil
}

// ceilSeconds rounds up to whole seconds so clients never retry early.
func ceilSeconds(d time.Duration) time.Duration {
	secs := math.Ceil(d.Seconds())
	return time.Duration(secs) * time.Second
}
