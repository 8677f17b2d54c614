package service

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInvalidRating is returned when a vote rating is outside [1,5].
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidReport is returned for malformed traction or metric
	// self-reports.
	ErrInvalidReport = errors.New("invalid report")

	// ErrNotStarted is returned when an operation runs before Start.
	ErrNotStarted = errors.New("service not started")
)

// RateLimitedError is returned when a voter is inside the cooldown window.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// RetryAfterSeconds returns the cooldown remainder as whole seconds for
// the Retry-After header and response body.
func (e *RateLimitedError) RetryAfterSeconds() int {
	return int(e.RetryAfter / time.Second)
}
