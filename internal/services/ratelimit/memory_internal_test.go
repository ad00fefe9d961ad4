package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/canvas-gateway/internal/pkg/clock"
)

func TestMemoryLimiter_JanitorDropsClosedWindows(t *testing.T) {
	l, err := NewMemoryLimiter(Config{Limit: 2, Window: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		_, err = l.Allow(ctx, key)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, l.size())

	assert.Eventually(t, func() bool { return l.size() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryLimiter_ClockDecidesRollover(t *testing.T) {
	// Arrange: the cache entry is still live on wall time
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l, err := NewMemoryLimiter(Config{Limit: 1, Window: time.Hour}, fake)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.Allow(ctx, "a")
	require.NoError(t, err)

	// Act
	fake.Advance(time.Hour)
	d, err := l.Allow(ctx, "a")

	// Assert
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, l.size())
}
