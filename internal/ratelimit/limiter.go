// Package ratelimit bounds verification attempts per caller. Public
// verification endpoints are unauthenticated, so the keying unit is the
// client IP.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// AttemptTracker decides whether a caller may make another attempt.
// Implementations must be safe for concurrent use and fail open on internal
// errors at the middleware layer, not here.
type AttemptTracker interface {
	Allow(ctx context.Context, key string) (*Result, error)
}
