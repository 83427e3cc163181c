package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTracker implements a fixed-window counter shared across instances.
// Each key gets an INCR counter that expires at the end of its window.
type RedisTracker struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisTracker builds a tracker allowing limit attempts per window per key.
func NewRedisTracker(client redis.Cmdable, limit int, window time.Duration) *RedisTracker {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisTracker{
		client: client,
		limit:  limit,
		window: window,
		prefix: "attest:ratelimit:",
		now:    time.Now,
	}
}

func (t *RedisTracker) Allow(ctx context.Context, key string) (*Result, error) {
	windowStart := t.now().Truncate(t.window)
	redisKey := fmt.Sprintf("%s%s:%d", t.prefix, key, windowStart.Unix())

	pipe := t.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("ratelimit incr: %w", err)
	}

	count := int(incr.Val())
	if count > t.limit {
		return &Result{
			Allowed:    false,
			Limit:      t.limit,
			Remaining:  0,
			RetryAfter: windowStart.Add(t.window).Sub(t.now()),
		}, nil
	}
	return &Result{
		Allowed:   true,
		Limit:     t.limit,
		Remaining: t.limit - count,
	}, nil
}

var _ AttemptTracker = (*RedisTracker)(nil)
