package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*Redis)(nil)

// Redis is the distributed store, shared across client instances. Values are
// stored as JSON; TTL enforcement is delegated to the backend.
//
// Backend errors never propagate: reads degrade to misses and writes report
// failure, so a lost redis connection behaves like a disabled cache.
type Redis struct {
	client *redis.Client
	logger hclog.Logger
}

// NewRedis wraps an existing redis client.
func NewRedis(client *redis.Client, logger hclog.Logger) *Redis {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Redis{client: client, logger: logger}
}

func (r *Redis) Get(ctx context.Context, key string) (any, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("redis get failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		r.logger.Warn("redis value is not valid JSON, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return value, true
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("redis set skipped, value not serializable", "key", key, "error", err)
		return false
	}
	expiration := ttl
	switch {
	case ttl == NoTTL:
		expiration = 0
	case ttl == 0:
		// Redis rejects zero expirations; the closest equivalent is an entry
		// that dies on the next tick.
		expiration = time.Millisecond
	}
	if err := r.client.Set(ctx, key, raw, expiration).Err(); err != nil {
		r.logger.Warn("redis set failed", "key", key, "error", err)
		return false
	}
	return true
}

func (r *Redis) Delete(ctx context.Context, key string) bool {
	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		r.logger.Warn("redis delete failed", "key", key, "error", err)
		return false
	}
	return n > 0
}

// DeletePattern scans incrementally with a cursor rather than enumerating
// the keyspace in one blocking call.
func (r *Redis) DeletePattern(ctx context.Context, pattern string) int {
	deleted := 0
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			r.logger.Warn("redis scan failed", "pattern", pattern, "error", err)
			return deleted
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				r.logger.Warn("redis delete failed during pattern delete", "pattern", pattern, "error", err)
				return deleted
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted
		}
	}
}

func (r *Redis) Exists(ctx context.Context, key string) bool {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Warn("redis exists failed, treating as absent", "key", key, "error", err)
		return false
	}
	return n > 0
}

// Clear flushes the entire shared database. Test-only by convention.
func (r *Redis) Clear(ctx context.Context) bool {
	if err := r.client.FlushDB(ctx).Err(); err != nil {
		r.logger.Warn("redis flushdb failed", "error", err)
		return false
	}
	return true
}

func (r *Redis) Close() error {
	if err := r.client.Close(); err != nil && err != redis.ErrClosed {
		r.logger.Warn("redis close failed", "error", err)
	}
	return nil
}

// Ping reports whether the backend is reachable.
func (r *Redis) Ping(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}
