// Package cache provides the check-result cache used by the client: a
// key-value Store capability with three interchangeable backends (redis,
// in-process memory, no-op) and a Manager that owns permission cache keys
// and their invalidation.
//
// Cache failures never propagate: every backend degrades to miss/zero
// results on error, so a broken cache behaves like a disabled one.
package cache

import (
	"context"
	"time"
)

// NoTTL stores an entry without expiration. A ttl of zero is a real TTL and
// expires the entry immediately.
const NoTTL time.Duration = -1

// Store is a key-value store with TTL, glob-based bulk deletion and
// existence checks. Implementations must be safe for concurrent use.
//
// Patterns use shell-style globs: '*', '?' and bracket classes.
type Store interface {
	// Get returns the value for key, or false on miss. Expired entries are
	// treated as misses.
	Get(ctx context.Context, key string) (any, bool)

	// Set stores value under key, overwriting any previous entry. NoTTL
	// means no expiration; any non-negative ttl is honored, including zero.
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool

	// Delete removes key, reporting whether it existed.
	Delete(ctx context.Context, key string) bool

	// DeletePattern removes every key matching the glob pattern and returns
	// the number removed.
	DeletePattern(ctx context.Context, pattern string) int

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) bool

	// Clear removes everything. For the redis backend this flushes the whole
	// shared database; treat it as test-only.
	Clear(ctx context.Context) bool

	// Close releases backend connections. Safe to call more than once.
	Close() error
}
