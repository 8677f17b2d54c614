// Package cache provides the TTL key-value cache fronting the leaderboard
// query service. The cache is a disposable derived view: it may always be
// dropped and rebuilt, so callers treat every error as a miss.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL key-value store.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Name identifies the backend for logs and stats.
	Name() string
}
