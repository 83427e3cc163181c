package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// entry pairs a token bucket with its last use, for eviction.
type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// InMemoryTracker keeps a token bucket per key. Suitable for single-instance
// deployments; multi-instance setups share state through the Redis tracker.
type InMemoryTracker struct {
	mu      sync.Mutex
	entries map[string]*entry

	ratePerMinute int
	burst         int
	idleTTL       time.Duration
	now           func() time.Time
}

// NewInMemoryTracker builds a tracker allowing ratePerMinute sustained
// attempts with the given burst per key. Idle keys are evicted lazily.
func NewInMemoryTracker(ratePerMinute, burst int) *InMemoryTracker {
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}
	if burst <= 0 {
		burst = ratePerMinute
	}
	return &InMemoryTracker{
		entries:       make(map[string]*entry),
		ratePerMinute: ratePerMinute,
		burst:         burst,
		idleTTL:       10 * time.Minute,
		now:           time.Now,
	}
}

func (t *InMemoryTracker) Allow(_ context.Context, key string) (*Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	e, ok := t.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(float64(t.ratePerMinute)/60.0), t.burst)}
		t.entries[key] = e
	}
	e.lastSeen = now

	// Piggyback eviction on lookups to keep the map bounded without a
	// background goroutine.
	if len(t.entries) > 1024 {
		t.evictIdle(now)
	}

	if !e.limiter.Allow() {
		return &Result{
			Allowed:    false,
			Limit:      t.ratePerMinute,
			Remaining:  0,
			RetryAfter: time.Duration(float64(time.Minute) / float64(t.ratePerMinute)),
		}, nil
	}
	return &Result{
		Allowed:   true,
		Limit:     t.ratePerMinute,
		Remaining: int(e.limiter.Tokens()),
	}, nil
}

func (t *InMemoryTracker) evictIdle(now time.Time) {
	for key, e := range t.entries {
		if now.Sub(e.lastSeen) > t.idleTTL {
			delete(t.entries, key)
		}
	}
}

var _ AttemptTracker = (*InMemoryTracker)(nil)
