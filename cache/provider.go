package cache

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Config.Backend.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Config selects and configures a Store backend.
type Config struct {
	Enabled  bool
	Backend  string
	RedisURL string
	Logger   hclog.Logger
}

// New builds a Store from the configuration. Selection is deliberate at
// construction time so fallback behavior is deterministic rather than hidden
// in first-use latency: a misconfigured or unreachable redis backend falls
// back to the in-process store with a logged warning, never an error.
func New(ctx context.Context, cfg Config) Store {
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	if !cfg.Enabled {
		logger.Debug("cache disabled, using no-op store")
		return NewNoOp()
	}

	switch cfg.Backend {
	case BackendRedis:
		if cfg.RedisURL == "" {
			logger.Warn("redis cache requested but no redis URL configured, falling back to memory store")
			return NewMemory()
		}
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("invalid redis URL, falling back to memory store", "error", err)
			return NewMemory()
		}
		opts.DialTimeout = 5 * time.Second
		client := redis.NewClient(opts)
		store := NewRedis(client, logger)
		if !store.Ping(ctx) {
			logger.Warn("redis unreachable, falling back to memory store", "url", cfg.RedisURL)
			_ = store.Close()
			return NewMemory()
		}
		logger.Info("using redis cache store", "url", cfg.RedisURL)
		return store
	case BackendMemory:
		logger.Info("using in-memory cache store")
		return NewMemory()
	case BackendNone:
		logger.Debug("cache backend none, using no-op store")
		return NewNoOp()
	default:
		logger.Warn("unknown cache backend, using no-op store", "backend", cfg.Backend)
		return NewNoOp()
	}
}
