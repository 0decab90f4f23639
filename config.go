package permkit

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	rootcerts "github.com/hashicorp/go-rootcerts"
	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"golang.org/x/time/rate"
)

// DefaultEnvPrefix is the prefix FromEnv uses when none is given.
const DefaultEnvPrefix = "PERMKIT_"

// Cache backend kinds accepted by Config.CacheBackend.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
	CacheBackendNone   = "none"
)

// Config is used to configure the creation of the client. A Config is
// validated once by NewClient and never mutated afterwards; it is safe to
// share a validated Config across goroutines. Use Clone to derive a modified
// copy.
type Config struct {
	// BaseURL is the address of the Permission Service. It must be a complete
	// http or https URL; a trailing slash is stripped during validation.
	BaseURL string

	// APIKey authenticates every request via the X-API-Key header.
	APIKey string

	// Timeout bounds each individual HTTP attempt. There is no separate
	// end-to-end deadline across retries; callers needing one should wrap
	// their context.
	Timeout time.Duration

	// MaxRetries is the number of retries after the initial attempt, so a
	// request makes at most MaxRetries+1 attempts.
	MaxRetries int

	// RetryBackoff is the wait before the first retry. Subsequent waits grow
	// as RetryBackoff * RetryMultiplier^attempt.
	RetryBackoff time.Duration

	// RetryMultiplier must be >= 1 so waits never shrink.
	RetryMultiplier float64

	// RetryOnStatus is the set of HTTP statuses that trigger a retry.
	RetryOnStatus map[int]bool

	// PoolMaxSize caps total connections per host in the shared pool.
	PoolMaxSize int

	// PoolConnections caps idle connections kept per host.
	PoolConnections int

	// ValidateIdentifiers enables client-side identifier validation before
	// any network call.
	ValidateIdentifiers bool

	// CacheEnabled turns on transparent caching of permission-check results.
	CacheEnabled bool

	// CacheBackend selects the store: "redis", "memory" or "none".
	CacheBackend string

	// CacheRedisURL is the redis connection URL for the redis backend.
	CacheRedisURL string

	// CacheTTL bounds the lifetime of cached check results.
	CacheTTL time.Duration

	// CacheKeyPrefix namespaces every cache key written by this client.
	CacheKeyPrefix string

	// TLSConfig carries optional TLS settings applied to the HTTP client.
	TLSConfig *TLSConfig

	// HttpClient overrides the pooled client built from the settings above.
	// Leave nil unless you need custom transport behavior.
	HttpClient *http.Client

	// Headers contains extra headers added to every request.
	Headers http.Header

	// Limiter, when set, gates outgoing requests client-side.
	Limiter *rate.Limiter

	// Logger receives retry and cache diagnostics. Defaults to a null logger.
	Logger hclog.Logger
}

// TLSConfig contains the parameters needed to configure TLS on the HTTP
// client used to communicate with the Permission Service.
type TLSConfig struct {
	// CACert is the path to a PEM-encoded CA cert file used to verify the
	// server certificate.
	CACert string

	// CAPath is the path to a directory of PEM-encoded CA cert files.
	CAPath string

	// ServerName, if set, is used to set the SNI host when connecting.
	ServerName string

	// Insecure disables certificate verification.
	Insecure bool
}

// DefaultConfig returns a configuration with the documented defaults. BaseURL
// and APIKey must still be supplied before NewClient will accept it.
func DefaultConfig() *Config {
	return &Config{
		Timeout:             30 * time.Second,
		MaxRetries:          3,
		RetryBackoff:        500 * time.Millisecond,
		RetryMultiplier:     2.0,
		RetryOnStatus:       map[int]bool{429: true, 500: true, 502: true, 503: true, 504: true},
		PoolMaxSize:         10,
		PoolConnections:     10,
		ValidateIdentifiers: true,
		CacheEnabled:        false,
		CacheBackend:        CacheBackendMemory,
		CacheTTL:            5 * time.Minute,
		CacheKeyPrefix:      "permkit",
		Headers:             make(http.Header),
		Logger:              hclog.NewNullLogger(),
	}
}

// FromEnv builds a Config from environment variables under the given prefix,
// falling back to DefaultEnvPrefix when prefix is empty. BASE_URL and API_KEY
// are required; everything else falls back to DefaultConfig values.
func FromEnv(prefix string) (*Config, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	c := DefaultConfig()
	if err := c.ReadEnvironment(prefix); err != nil {
		return nil, err
	}
	return c, nil
}

// ReadEnvironment reads configuration from environment variables under the
// given prefix into c. Unset variables leave the existing values in place.
func (c *Config) ReadEnvironment(prefix string) error {
	if v := os.Getenv(prefix + "BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(prefix + "API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(prefix + "TIMEOUT"); v != "" {
		timeout, err := parseutil.ParseDurationSecond(v)
		if err != nil {
			return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("could not parse %sTIMEOUT: %v", prefix, err)}
		}
		c.Timeout = timeout
	}
	if v := os.Getenv(prefix + "MAX_RETRIES"); v != "" {
		maxRetries, err := strconv.Atoi(v)
		if err != nil {
			return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("could not parse %sMAX_RETRIES: %v", prefix, err)}
		}
		c.MaxRetries = maxRetries
	}
	if v := os.Getenv(prefix + "RETRY_BACKOFF"); v != "" {
		backoff, err := parseutil.ParseDurationSecond(v)
		if err != nil {
			return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("could not parse %sRETRY_BACKOFF: %v", prefix, err)}
		}
		c.RetryBackoff = backoff
	}
	if v := os.Getenv(prefix + "RETRY_MULTIPLIER"); v != "" {
		multiplier, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("could not parse %sRETRY_MULTIPLIER: %v", prefix, err)}
		}
		c.RetryMultiplier = multiplier
	}
	if v := os.Getenv(prefix + "POOL_MAXSIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("could not parse %sPOOL_MAXSIZE: %v", prefix, err)}
		}
		c.PoolMaxSize = size
	}
	if v := os.Getenv(prefix + "POOL_CONNECTIONS"); v != "" {
		conns, err := strconv.Atoi(v)
		if err != nil {
			return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("could not parse %sPOOL_CONNECTIONS: %v", prefix, err)}
		}
		c.PoolConnections = conns
	}
	if v := os.Getenv(prefix + "VALIDATE_IDENTIFIERS"); v != "" {
		validate, err := strconv.ParseBool(v)
		if err != nil {
			return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("could not parse %sVALIDATE_IDENTIFIERS: %v", prefix, err)}
		}
		c.ValidateIdentifiers = validate
	}
	if v := os.Getenv(prefix + "CACHE_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("could not parse %sCACHE_ENABLED: %v", prefix, err)}
		}
		c.CacheEnabled = enabled
	}
	if v := os.Getenv(prefix + "CACHE_TYPE"); v != "" {
		c.CacheBackend = strings.ToLower(v)
	}
	if v := os.Getenv(prefix + "CACHE_REDIS_URL"); v != "" {
		c.CacheRedisURL = v
	}
	if v := os.Getenv(prefix + "CACHE_TTL"); v != "" {
		ttl, err := parseutil.ParseDurationSecond(v)
		if err != nil {
			return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("could not parse %sCACHE_TTL: %v", prefix, err)}
		}
		c.CacheTTL = ttl
	}
	if v := os.Getenv(prefix + "CACHE_KEY_PREFIX"); v != "" {
		c.CacheKeyPrefix = v
	}
	return nil
}

// validate checks every construction invariant and normalizes BaseURL. It is
// called once from NewClient.
func (c *Config) validate() error {
	if c.BaseURL == "" {
		return &Error{Kind: KindConfiguration, Message: "base_url is required"}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("base_url must be an absolute http or https URL, got: %s", c.BaseURL)}
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.APIKey == "" {
		return &Error{Kind: KindConfiguration, Message: "api_key is required"}
	}
	if c.Timeout <= 0 {
		return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("timeout must be positive, got: %s", c.Timeout)}
	}
	if c.MaxRetries < 0 {
		return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("max_retries must be non-negative, got: %d", c.MaxRetries)}
	}
	if c.RetryBackoff < 0 {
		return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("retry_backoff must be non-negative, got: %s", c.RetryBackoff)}
	}
	if c.RetryMultiplier < 1 {
		return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("retry_multiplier must be >= 1, got: %v", c.RetryMultiplier)}
	}
	if c.PoolMaxSize <= 0 {
		return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("pool_maxsize must be positive, got: %d", c.PoolMaxSize)}
	}
	if c.PoolConnections <= 0 {
		return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("pool_connections must be positive, got: %d", c.PoolConnections)}
	}
	if c.CacheEnabled {
		switch c.CacheBackend {
		case CacheBackendRedis, CacheBackendMemory, CacheBackendNone:
		default:
			return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("cache_backend must be one of redis, memory, none, got: %s", c.CacheBackend)}
		}
		if c.CacheTTL <= 0 {
			return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("cache_ttl must be positive, got: %s", c.CacheTTL)}
		}
		if c.CacheKeyPrefix == "" {
			return &Error{Kind: KindConfiguration, Message: "cache_key_prefix is required when caching is enabled"}
		}
	}
	return nil
}

// Clone returns an independent copy of the configuration. The retry-status
// set, headers and TLS settings are deep-copied so the clone can be modified
// and handed to NewClient without affecting the original.
func (c *Config) Clone() *Config {
	clone := *c
	clone.RetryOnStatus = make(map[int]bool, len(c.RetryOnStatus))
	for k, v := range c.RetryOnStatus {
		clone.RetryOnStatus[k] = v
	}
	clone.Headers = copyHeaders(c.Headers)
	if c.TLSConfig != nil {
		clone.TLSConfig = new(TLSConfig)
		*clone.TLSConfig = *c.TLSConfig
	}
	return &clone
}

// configureTLS applies TLSConfig to the transport's tls.Config.
func (c *Config) configureTLS(clientTLSConfig *tls.Config) error {
	if c.TLSConfig == nil {
		return nil
	}
	if c.TLSConfig.CACert != "" || c.TLSConfig.CAPath != "" {
		rootConfig := &rootcerts.Config{
			CAFile: c.TLSConfig.CACert,
			CAPath: c.TLSConfig.CAPath,
		}
		if err := rootcerts.ConfigureTLS(clientTLSConfig, rootConfig); err != nil {
			return &Error{Kind: KindConfiguration, Message: fmt.Sprintf("error configuring TLS roots: %v", err)}
		}
	}
	if c.TLSConfig.Insecure {
		clientTLSConfig.InsecureSkipVerify = true
	}
	if c.TLSConfig.ServerName != "" {
		clientTLSConfig.ServerName = c.TLSConfig.ServerName
	}
	return nil
}

func copyHeaders(in http.Header) http.Header {
	ret := make(http.Header)
	for k, v := range in {
		for _, val := range v {
			ret[k] = append(ret[k], val)
		}
	}
	return ret
}
