// Package cache provides the cache type constants.
package cache

// Type represents the type of cache.
type Type string

const (
	// TypeNone disables the shared cache; counters stay in process memory.
	TypeNone Type = "none"

	// TypeRedis represents a Redis cache.
	TypeRedis Type = "redis"
)
