// Package cache defines the shared counter store used for distributed rate
// limiting.
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for counter cache operations.
type Cache interface {
	// Incr atomically increments the counter at key and returns its new
	// value and remaining lifetime.  A counter created by this call expires
	// after ttl.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Ping checks if the cache connection is alive.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
