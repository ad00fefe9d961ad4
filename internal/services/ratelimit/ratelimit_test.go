package ratelimit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	rediscache "github.com/unifiedui/canvas-gateway/internal/infrastructure/cache/redis"
	"github.com/unifiedui/canvas-gateway/internal/mocks"
	"github.com/unifiedui/canvas-gateway/internal/pkg/clock"
	"github.com/unifiedui/canvas-gateway/internal/services/ratelimit"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *ratelimit.CacheLimiter) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	c, err := rediscache.NewCache(rediscache.Config{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)

	l, err := ratelimit.NewCacheLimiter(ratelimit.Config{Limit: 3, Window: time.Minute}, c)
	require.NoError(t, err)

	t.Cleanup(func() {
		c.Close()
		mr.Close()
	})

	return mr, l
}

func TestMemoryLimiter_AllowsUpToLimit(t *testing.T) {
	// Arrange
	fake := clock.NewFake(epoch)
	l, err := ratelimit.NewMemoryLimiter(ratelimit.Config{Limit: 3, Window: time.Minute}, fake)
	require.NoError(t, err)
	ctx := context.Background()

	// Act & Assert
	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "session:a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(2-i), d.Remaining)
	}

	fake.Advance(20 * time.Second)
	d, err := l.Allow(ctx, "session:a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(0), d.Remaining)
	assert.Equal(t, 40*time.Second, d.RetryAfter)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l, err := ratelimit.NewMemoryLimiter(ratelimit.Config{Limit: 1, Window: time.Minute}, clock.NewFake(epoch))
	require.NoError(t, err)
	ctx := context.Background()

	d, err := l.Allow(ctx, "session:a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = l.Allow(ctx, "session:b")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = l.Allow(ctx, "session:a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestMemoryLimiter_NewWindowResets(t *testing.T) {
	fake := clock.NewFake(epoch)
	l, err := ratelimit.NewMemoryLimiter(ratelimit.Config{Limit: 1, Window: time.Minute}, fake)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.Allow(ctx, "k")
	require.NoError(t, err)

	fake.Advance(time.Minute)

	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_Reset(t *testing.T) {
	l, err := ratelimit.NewMemoryLimiter(ratelimit.Config{Limit: 1, Window: time.Minute}, clock.NewFake(epoch))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, l.Reset(ctx, "k"))

	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.NoError(t, l.Ping(ctx))
}

func TestNewMemoryLimiter_Defaults(t *testing.T) {
	l, err := ratelimit.NewMemoryLimiter(ratelimit.Config{}, nil)
	require.NoError(t, err)

	d, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, int64(ratelimit.DefaultLimit), d.Limit)
}

func TestNewMemoryLimiter_Invalid(t *testing.T) {
	_, err := ratelimit.NewMemoryLimiter(ratelimit.Config{Limit: -1}, nil)
	assert.Error(t, err)

	_, err = ratelimit.NewMemoryLimiter(ratelimit.Config{Window: -time.Second}, nil)
	assert.Error(t, err)
}

func TestCacheLimiter_AllowsUpToLimit(t *testing.T) {
	mr, l := setupMiniredis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "session:a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := l.Allow(ctx, "session:a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.True(t, d.RetryAfter > 0)

	mr.FastForward(time.Minute)

	d, err = l.Allow(ctx, "session:a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCacheLimiter_Reset(t *testing.T) {
	mr, l := setupMiniredis(t)
	ctx := context.Background()

	_, err := l.Allow(ctx, "session:a")
	require.NoError(t, err)
	assert.True(t, mr.Exists("ratelimit:session:a"))

	require.NoError(t, l.Reset(ctx, "session:a"))
	assert.False(t, mr.Exists("ratelimit:session:a"))
	assert.NoError(t, l.Ping(ctx))
}

func TestCacheLimiter_CacheError(t *testing.T) {
	// Arrange
	c := &mocks.MockCache{}
	c.On("Incr", mock.Anything, "ratelimit:k", time.Minute).Return(int64(0), time.Duration(0), assert.AnError)

	l, err := ratelimit.NewCacheLimiter(ratelimit.Config{Limit: 1, Window: time.Minute}, c)
	require.NoError(t, err)

	// Act
	d, err := l.Allow(context.Background(), "k")

	// Assert
	assert.Nil(t, d)
	assert.ErrorIs(t, err, assert.AnError)
	c.AssertExpectations(t)
}

func TestNewCacheLimiter_NilCache(t *testing.T) {
	l, err := ratelimit.NewCacheLimiter(ratelimit.Config{}, nil)

	assert.Nil(t, l)
	assert.Error(t, err)
}

func TestLimiters_ConcurrentAllowHonorsLimit(t *testing.T) {
	const callers = 50

	memory, err := ratelimit.NewMemoryLimiter(ratelimit.Config{Limit: 3, Window: time.Minute}, clock.NewFake(epoch))
	require.NoError(t, err)
	_, shared := setupMiniredis(t)

	limiters := map[string]ratelimit.Limiter{
		"memory": memory,
		"cache":  shared,
	}

	for name, l := range limiters {
		t.Run(name, func(t *testing.T) {
			var (
				wg      sync.WaitGroup
				allowed atomic.Int32
			)

			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()

					d, err := l.Allow(context.Background(), "session:burst")
					if assert.NoError(t, err) && d.Allowed {
						allowed.Add(1)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(3), allowed.Load())
		})
	}
}

func TestKeysAndRetryAfter(t *testing.T) {
	assert.Equal(t, "session:abc", ratelimit.SessionKey("abc"))
	assert.Equal(t, "ip:10.0.0.1", ratelimit.IPKey("10.0.0.1"))

	assert.Equal(t, 1, ratelimit.RetryAfterSeconds(0))
	assert.Equal(t, 1, ratelimit.RetryAfterSeconds(300*time.Millisecond))
	assert.Equal(t, 40, ratelimit.RetryAfterSeconds(40*time.Second))
	assert.Equal(t, 41, ratelimit.RetryAfterSeconds(40*time.Second+time.Millisecond))
}
