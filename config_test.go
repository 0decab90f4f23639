package permkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, 3, c.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, c.RetryBackoff)
	assert.Equal(t, 2.0, c.RetryMultiplier)
	assert.Equal(t, map[int]bool{429: true, 500: true, 502: true, 503: true, 504: true}, c.RetryOnStatus)
	assert.Equal(t, 10, c.PoolMaxSize)
	assert.Equal(t, 10, c.PoolConnections)
	assert.True(t, c.ValidateIdentifiers)
	assert.False(t, c.CacheEnabled)
	assert.Equal(t, CacheBackendMemory, c.CacheBackend)
	assert.Equal(t, 5*time.Minute, c.CacheTTL)
	assert.Equal(t, "permkit", c.CacheKeyPrefix)
	assert.NotNil(t, c.Logger)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		c := DefaultConfig()
		c.BaseURL = "https://perms.example.com"
		c.APIKey = "test-key"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.BaseURL = "" },
			wantErr: "base_url is required",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.BaseURL = "perms.example.com" },
			wantErr: "base_url must be an absolute http or https URL",
		},
		{
			name:    "unsupported scheme",
			mutate:  func(c *Config) { c.BaseURL = "ftp://perms.example.com" },
			wantErr: "base_url must be an absolute http or https URL",
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.APIKey = "" },
			wantErr: "api_key is required",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Timeout = -1 * time.Second },
			wantErr: "timeout must be positive",
		},
		{
			name:    "negative max retries",
			mutate:  func(c *Config) { c.MaxRetries = -1 },
			wantErr: "max_retries must be non-negative",
		},
		{
			name:    "negative retry backoff",
			mutate:  func(c *Config) { c.RetryBackoff = -time.Millisecond },
			wantErr: "retry_backoff must be non-negative",
		},
		{
			name:    "shrinking retry multiplier",
			mutate:  func(c *Config) { c.RetryMultiplier = 0.5 },
			wantErr: "retry_multiplier must be >= 1",
		},
		{
			name:    "zero pool size",
			mutate:  func(c *Config) { c.PoolMaxSize = -1 },
			wantErr: "pool_maxsize must be positive",
		},
		{
			name: "bad cache backend",
			mutate: func(c *Config) {
				c.CacheEnabled = true
				c.CacheBackend = "memcached"
			},
			wantErr: "cache_backend must be one of redis, memory, none",
		},
		{
			name: "bad cache ttl",
			mutate: func(c *Config) {
				c.CacheEnabled = true
				c.CacheTTL = 0
			},
			wantErr: "cache_ttl must be positive",
		},
		{
			name: "missing cache key prefix",
			mutate: func(c *Config) {
				c.CacheEnabled = true
				c.CacheKeyPrefix = ""
			},
			wantErr: "cache_key_prefix is required when caching is enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			apiErr := AsApiError(err)
			require.NotNil(t, apiErr)
			assert.Equal(t, KindConfiguration, apiErr.Kind)
			assert.Contains(t, apiErr.Message, tt.wantErr)
		})
	}
}

func TestConfigValidateStripsTrailingSlash(t *testing.T) {
	c := DefaultConfig()
	c.BaseURL = "https://perms.example.com/"
	c.APIKey = "test-key"
	require.NoError(t, c.validate())
	assert.Equal(t, "https://perms.example.com", c.BaseURL)
}

func TestConfigReadEnvironment(t *testing.T) {
	t.Setenv("PERMKIT_BASE_URL", "https://perms.example.com")
	t.Setenv("PERMKIT_API_KEY", "env-key")
	t.Setenv("PERMKIT_TIMEOUT", "5s")
	t.Setenv("PERMKIT_MAX_RETRIES", "7")
	t.Setenv("PERMKIT_RETRY_BACKOFF", "250ms")
	t.Setenv("PERMKIT_RETRY_MULTIPLIER", "1.5")
	t.Setenv("PERMKIT_VALIDATE_IDENTIFIERS", "false")
	t.Setenv("PERMKIT_CACHE_ENABLED", "true")
	t.Setenv("PERMKIT_CACHE_TYPE", "Redis")
	t.Setenv("PERMKIT_CACHE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PERMKIT_CACHE_TTL", "90s")
	t.Setenv("PERMKIT_CACHE_KEY_PREFIX", "myapp")

	c, err := FromEnv("")
	require.NoError(t, err)
	assert.Equal(t, "https://perms.example.com", c.BaseURL)
	assert.Equal(t, "env-key", c.APIKey)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, 7, c.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, c.RetryBackoff)
	assert.Equal(t, 1.5, c.RetryMultiplier)
	assert.False(t, c.ValidateIdentifiers)
	assert.True(t, c.CacheEnabled)
	assert.Equal(t, CacheBackendRedis, c.CacheBackend)
	assert.Equal(t, "redis://localhost:6379/0", c.CacheRedisURL)
	assert.Equal(t, 90*time.Second, c.CacheTTL)
	assert.Equal(t, "myapp", c.CacheKeyPrefix)
}

func TestConfigReadEnvironmentBadValue(t *testing.T) {
	t.Setenv("PERMKIT_MAX_RETRIES", "lots")
	_, err := FromEnv("")
	require.Error(t, err)
	apiErr := AsApiError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, KindConfiguration, apiErr.Kind)
	assert.Contains(t, apiErr.Message, "PERMKIT_MAX_RETRIES")
}

func TestConfigReadEnvironmentCustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_BASE_URL", "https://perms.internal")
	t.Setenv("MYAPP_API_KEY", "other-key")

	c, err := FromEnv("MYAPP_")
	require.NoError(t, err)
	assert.Equal(t, "https://perms.internal", c.BaseURL)
	assert.Equal(t, "other-key", c.APIKey)
}

func TestConfigClone(t *testing.T) {
	c := DefaultConfig()
	c.BaseURL = "https://perms.example.com"
	c.APIKey = "test-key"
	c.Headers.Set("X-Extra", "1")
	c.TLSConfig = &TLSConfig{ServerName: "perms.example.com"}

	clone := c.Clone()
	clone.RetryOnStatus[418] = true
	clone.Headers.Set("X-Extra", "2")
	clone.TLSConfig.ServerName = "other"

	assert.False(t, c.RetryOnStatus[418])
	assert.Equal(t, "1", c.Headers.Get("X-Extra"))
	assert.Equal(t, "perms.example.com", c.TLSConfig.ServerName)
}
