// Package store provides counter storage backends for rate limiting.
package store

import (
	"context"
	"time"
)

// Store defines the interface for rate limit counter storage.
// Implementations must be safe for concurrent use.
type Store interface {
	// IncrementWithExpiry atomically adds delta to the counter at key and
	// returns the new value. A newly created counter expires after
	// expiration.
	IncrementWithExpiry(ctx context.Context, key string, delta int64, expiration time.Duration) (int64, error)

	// Close releases resources held by the store.
	Close() error
}

// Type names a store backend.
type Type string

// Store backends.
const (
	TypeMemory Type = "memory"
	TypeRedis  Type = "redis"
)
