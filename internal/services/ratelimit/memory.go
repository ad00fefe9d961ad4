package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/unifiedui/canvas-gateway/internal/pkg/clock"
)

// window is the value stored per key.  start is read from the limiter's
// clock so window rollover follows that clock, while the cache expires
// idle entries on wall time.
type window struct {
	start time.Time
	count int64
}

// MemoryLimiter is the in-process Limiter.
type MemoryLimiter struct {
	clock  clock.Clock
	limit  int64
	period time.Duration

	// mu serializes the read-modify-write of a window; the cache itself
	// only guards single calls.
	mu      sync.Mutex
	windows *gocache.Cache
}

// NewMemoryLimiter returns a properly initialized *MemoryLimiter.  c may be
// nil, in which case the system clock is used.
func NewMemoryLimiter(cfg Config, c clock.Clock) (*MemoryLimiter, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	if c == nil {
		c = clock.System{}
	}

	return &MemoryLimiter{
		clock:   c,
		limit:   cfg.Limit,
		period:  cfg.Window,
		windows: gocache.New(cfg.Window, cfg.Window),
	}, nil
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (*Decision, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.current(key, now)

	retryAfter := w.start.Add(l.period).Sub(now)
	if w.count >= l.limit {
		return &Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: retryAfter,
		}, nil
	}

	w.count++

	return &Decision{
		Allowed:    true,
		Limit:      l.limit,
		Remaining:  l.limit - w.count,
		RetryAfter: retryAfter,
	}, nil
}

// current returns the open window of key, starting a new one when the
// previous has closed.  l.mu must be held.
func (l *MemoryLimiter) current(key string, now time.Time) *window {
	if v, ok := l.windows.Get(key); ok {
		if w, ok := v.(*window); ok && now.Before(w.start.Add(l.period)) {
			return w
		}
	}

	w := &window{start: now}
	l.windows.Set(key, w, gocache.DefaultExpiration)

	return w
}

// Reset implements Limiter.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.windows.Delete(key)
	return nil
}

// Ping implements Limiter.
func (l *MemoryLimiter) Ping(_ context.Context) error {
	return nil
}

// size returns the number of tracked windows, expired or not.
func (l *MemoryLimiter) size() int {
	return l.windows.ItemCount()
}
