package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTrackerAllowsWithinBurst(t *testing.T) {
	tracker := NewInMemoryTracker(60, 5)

	for i := 0; i < 5; i++ {
		result, err := tracker.Allow(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "attempt %d should be within burst", i+1)
	}
}

func TestInMemoryTrackerBlocksBeyondBurst(t *testing.T) {
	tracker := NewInMemoryTracker(60, 3)

	for i := 0; i < 3; i++ {
		result, err := tracker.Allow(context.Background(), "10.0.0.2")
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}

	result, err := tracker.Allow(context.Background(), "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 60, result.Limit)
	assert.Positive(t, result.RetryAfter)
}

func TestInMemoryTrackerIsolatesKeys(t *testing.T) {
	tracker := NewInMemoryTracker(60, 1)

	first, err := tracker.Allow(context.Background(), "10.0.0.3")
	require.NoError(t, err)
	require.True(t, first.Allowed)

	blocked, err := tracker.Allow(context.Background(), "10.0.0.3")
	require.NoError(t, err)
	require.False(t, blocked.Allowed)

	other, err := tracker.Allow(context.Background(), "10.0.0.4")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "a throttled caller must not affect others")
}

func TestInMemoryTrackerDefaults(t *testing.T) {
	tracker := NewInMemoryTracker(0, 0)

	result, err := tracker.Allow(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 60, result.Limit)
}
