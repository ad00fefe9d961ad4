// Package ratelimit implements fixed-window request limiting keyed by
// session or source address.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultLimit is the default number of requests allowed per window.
	DefaultLimit = 60

	// DefaultWindow is the default window length.
	DefaultWindow = time.Minute
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64

	// RetryAfter is the time until the current window closes.
	RetryAfter time.Duration
}

// Limiter counts requests per key in fixed windows.  A denied request is
// dropped, never queued.
type Limiter interface {
	// Allow counts one request for key and reports whether it fits in the
	// current window.
	Allow(ctx context.Context, key string) (*Decision, error)

	// Reset forgets the window of key.
	Reset(ctx context.Context, key string) error

	// Ping checks the backing store.
	Ping(ctx context.Context) error
}

// Config holds the limits shared by all implementations.
type Config struct {
	Limit  int64
	Window time.Duration
}

// normalize fills zero values with defaults and validates the rest.
func (c Config) normalize() (Config, error) {
	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.Limit < 0 {
		return c, fmt.Errorf("ratelimit: limit must be positive, got %d", c.Limit)
	}
	if c.Window < 0 {
		return c, fmt.Errorf("ratelimit: window must be positive, got %s", c.Window)
	}
	return c, nil
}

// SessionKey returns the limiter key of a session.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// IPKey returns the limiter key of a source address.
func IPKey(addr string) string {
	return "ip:" + addr
}

// RetryAfterSeconds rounds d up to whole seconds, with a minimum of 1.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
