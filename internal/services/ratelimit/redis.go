package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/unifiedui/canvas-gateway/internal/core/cache"
)

// keyPrefix namespaces limiter counters in the shared cache.
const keyPrefix = "ratelimit:"

// CacheLimiter is a Limiter backed by a shared counter cache, so that
// several gateway replicas enforce one budget per key.
type CacheLimiter struct {
	cache  cache.Cache
	limit  int64
	period time.Duration
}

// NewCacheLimiter creates a Limiter over c.
func NewCacheLimiter(cfg Config, c cache.Cache) (*CacheLimiter, error) {
	if c == nil {
		return nil, fmt.Errorf("cache is required")
	}

	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	return &CacheLimiter{
		cache:  c,
		limit:  cfg.Limit,
		period: cfg.Window,
	}, nil
}

// Allow implements Limiter.  The counter keeps growing past the limit
// while the window is open; only the first Limit increments are allowed.
func (l *CacheLimiter) Allow(ctx context.Context, key string) (*Decision, error) {
	count, left, err := l.cache.Incr(ctx, keyPrefix+key, l.period)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: %w", err)
	}

	if count > l.limit {
		return &Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: left,
		}, nil
	}

	return &Decision{
		Allowed:    true,
		Limit:      l.limit,
		Remaining:  l.limit - count,
		RetryAfter: left,
	}, nil
}

// Reset implements Limiter.
func (l *CacheLimiter) Reset(ctx context.Context, key string) error {
	if _, err := l.cache.Delete(ctx, keyPrefix+key); err != nil {
		return fmt.Errorf("ratelimit: %w", err)
	}
	return nil
}

// Ping implements Limiter.
func (l *CacheLimiter) Ping(ctx context.Context) error {
	return l.cache.Ping(ctx)
}
