// Package cache defines the Distributed Cache abstraction the server
// uses for two kinds of short-lived binary blobs: authorization-request
// continuation entries keyed by unique_id, and one-shot authorization
// code payloads keyed by a random 256-bit key. Any backend satisfying
// Cache works; this package ships an in-process LRU backend and a
// Redis-backed one.
package cache

import (
	"context"
	"time"
)

// Cache is a minimal distributed key-value store for byte blobs with
// absolute expiration. Concurrent duplicate writes to the same key are
// tolerated; random-key collisions across writers are cryptographically
// negligible.
type Cache interface {
	// Get returns the stored bytes, or ok=false when absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key until expiresAt.
	Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
