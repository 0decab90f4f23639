// Package permkit is the Go client for the Permission Service HTTP API. It
// turns typed operation calls into HTTP requests with retry/backoff, maps
// responses onto a closed error taxonomy, and optionally caches
// permission-check results with invalidation on grant/revoke.
//
// Construct a Client once with NewClient and share it; all methods are safe
// for concurrent use. The resource packages (permissions, subjects, scopes,
// limits) wrap a *Client with one method per remote operation.
package permkit

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/hashicorp/go-uuid"
	"go.uber.org/atomic"

	"github.com/permkit/permkit-go/cache"
)

const basePath = "/api/v1"

// Endpoints the transport treats specially for caching.
const (
	endpointCheck      = "permissions/check"
	endpointCheckMany  = "permissions/check-many"
	endpointGrant      = "permissions/grant"
	endpointGrantMany  = "permissions/grant-many"
	endpointRevoke     = "permissions/revoke"
	endpointRevokeMany = "permissions/revoke-many"
)

// Client is the client to the Permission Service API. Create one with
// NewClient; it holds a single pooled HTTP connection resource shared across
// all calls, plus the permission cache when caching is enabled.
type Client struct {
	config     *Config
	httpClient *http.Client
	pcache     *cache.Manager
	closed     atomic.Bool
}

// NewClient validates the configuration and returns a ready client. The
// cache backend is selected eagerly here, so a misconfigured redis falls
// back to the in-process store deterministically rather than on first use.
func NewClient(c *Config) (*Client, error) {
	if c == nil {
		c = DefaultConfig()
	}
	c = c.Clone()
	if c.Logger == nil {
		c.Logger = DefaultConfig().Logger
	}
	if c.Headers == nil {
		c.Headers = make(http.Header)
	}
	if c.RetryOnStatus == nil {
		c.RetryOnStatus = DefaultConfig().RetryOnStatus
	}
	// Zero values whose zero is never valid take the documented defaults, so
	// a Config carrying only BaseURL and APIKey behaves like DefaultConfig.
	def := DefaultConfig()
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.RetryMultiplier == 0 {
		c.RetryMultiplier = def.RetryMultiplier
	}
	if c.PoolMaxSize == 0 {
		c.PoolMaxSize = def.PoolMaxSize
	}
	if c.PoolConnections == 0 {
		c.PoolConnections = def.PoolConnections
	}
	if c.CacheBackend == "" {
		c.CacheBackend = def.CacheBackend
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = def.CacheTTL
	}
	if c.CacheKeyPrefix == "" {
		c.CacheKeyPrefix = def.CacheKeyPrefix
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	httpClient := c.HttpClient
	if httpClient == nil {
		transport := cleanhttp.DefaultPooledTransport()
		transport.MaxConnsPerHost = c.PoolMaxSize
		transport.MaxIdleConns = c.PoolMaxSize
		transport.MaxIdleConnsPerHost = c.PoolConnections
		transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		if err := c.configureTLS(transport.TLSClientConfig); err != nil {
			return nil, err
		}
		httpClient = &http.Client{
			Transport: transport,
			Timeout:   c.Timeout,
		}
	}
	if httpClient.CheckRedirect == nil {
		// Do not silently follow redirects; the retry client would otherwise
		// see an error on every redirect attempt.
		httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	store := cache.New(context.Background(), cache.Config{
		Enabled:  c.CacheEnabled,
		Backend:  c.CacheBackend,
		RedisURL: c.CacheRedisURL,
		Logger:   c.Logger,
	})

	return &Client{
		config:     c,
		httpClient: httpClient,
		pcache:     cache.NewManager(store, c.CacheKeyPrefix, c.Logger),
	}, nil
}

// Config returns a copy of the client's validated configuration.
func (c *Client) Config() *Config {
	return c.config.Clone()
}

// Cache exposes the permission cache manager for administrative operations
// such as InvalidateAllChecks.
func (c *Client) Cache() *cache.Manager {
	return c.pcache
}

// ValidateIdentifiers reports whether client-side identifier validation is
// enabled.
func (c *Client) ValidateIdentifiers() bool {
	return c.config.ValidateIdentifiers
}

// NewRequest creates a raw request against the configured service. This is
// an advanced method; resource packages go through Request instead.
func (c *Client) NewRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s/%s", c.config.BaseURL, basePath, endpoint), reader)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: fmt.Sprintf("error creating request: %v", err)}
	}
	req.Header = copyHeaders(c.config.Headers)
	req.Header.Set("X-API-Key", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if reqID, err := uuid.GenerateUUID(); err == nil {
		req.Header.Set("X-Request-Id", reqID)
	}
	return req, nil
}

// Do executes a request with the configured retry policy and maps the
// outcome: a 2xx response (204 becomes an empty success), or one typed
// *Error. Each attempt is bounded by the configured timeout; attempts beyond
// the first wait backoff * multiplier^attempt in between.
func (c *Client) Do(r *http.Request) (*Response, error) {
	if c.config.Limiter != nil {
		if err := c.config.Limiter.Wait(r.Context()); err != nil {
			return nil, &Error{Kind: KindNetwork, Message: "rate limiter wait aborted", Err: err}
		}
	}

	req, err := retryablehttp.FromRequest(r)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: fmt.Sprintf("error converting request to retryable request: %v", err)}
	}

	client := &retryablehttp.Client{
		HTTPClient:   c.httpClient,
		Logger:       c.config.Logger,
		RetryWaitMin: c.config.RetryBackoff,
		RetryWaitMax: c.config.RetryBackoff,
		RetryMax:     c.config.MaxRetries,
		CheckRetry:   checkRetryPolicy(c.config.RetryOnStatus),
		Backoff:      exponentialBackoff(c.config.RetryBackoff, c.config.RetryMultiplier),
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &Error{
				Kind:    KindTimeout,
				Message: fmt.Sprintf("request timed out after %s", c.config.Timeout),
				Timeout: c.config.Timeout,
				Err:     err,
			}
		}
		return nil, &Error{
			Kind:    KindNetwork,
			Message: fmt.Sprintf("failed to connect to %s: %v", c.config.BaseURL, err),
			Err:     err,
		}
	}
	if resp == nil {
		return nil, &Error{Kind: KindServer, Message: "maximum retries exceeded"}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &Response{Status: resp.StatusCode, Header: resp.Header}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: fmt.Sprintf("error reading response body: %v", err), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiErrorFromResponse(resp.StatusCode, resp.Header, body)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// Request is the transport entry point used by the resource packages. It
// serializes body, consults the permission cache for check endpoints,
// executes the request via Do, and on success writes through or invalidates
// the cache as the endpoint requires. Cache failures never fail the call.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any, query url.Values) (*Response, error) {
	if c.closed.Load() {
		return nil, &Error{Kind: KindConfiguration, Message: "client is closed"}
	}

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Message: fmt.Sprintf("error serializing request body: %v", err)}
		}
	}

	useCache := c.config.CacheEnabled
	if useCache {
		if resp, ok := c.cacheLookup(ctx, endpoint, raw); ok {
			return resp, nil
		}
	}

	req, err := c.NewRequest(ctx, method, endpoint, raw)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}

	if useCache {
		c.cacheUpdate(ctx, endpoint, raw, resp)
	}
	return resp, nil
}

// cacheLookup serves check endpoints from the cache when possible. A hit
// returns a synthesized response and skips the network entirely.
func (c *Client) cacheLookup(ctx context.Context, endpoint string, raw []byte) (*Response, bool) {
	switch endpoint {
	case endpointCheck:
		spec, ok := decodeCheckSpec(raw)
		if !ok {
			return nil, false
		}
		allowed, ok := c.pcache.GetCheckResult(ctx, spec.Subjects, spec.Scope, spec.Action, spec.TenantID, spec.ObjectID)
		if !ok {
			return nil, false
		}
		payload, err := json.Marshal(map[string]bool{"allowed": allowed})
		if err != nil {
			return nil, false
		}
		return &Response{Body: payload}, true
	case endpointCheckMany:
		specs, ok := decodeCheckSpecs(raw)
		if !ok {
			return nil, false
		}
		results, ok := c.pcache.GetCheckManyResult(ctx, specs)
		if !ok {
			return nil, false
		}
		payload, err := json.Marshal(map[string]any{"results": results})
		if err != nil {
			return nil, false
		}
		return &Response{Body: payload}, true
	}
	return nil, false
}

// cacheUpdate runs after a successful response: write-through for check
// endpoints, invalidation for mutations, nothing for passthrough endpoints.
func (c *Client) cacheUpdate(ctx context.Context, endpoint string, raw []byte, resp *Response) {
	switch endpoint {
	case endpointCheck:
		spec, ok := decodeCheckSpec(raw)
		if !ok {
			return
		}
		var result struct {
			Allowed bool `json:"allowed"`
		}
		if err := resp.Decode(&result); err != nil {
			return
		}
		c.pcache.SetCheckResult(ctx, spec.Subjects, spec.Scope, spec.Action, spec.TenantID, spec.ObjectID, result.Allowed, c.config.CacheTTL)
	case endpointCheckMany:
		specs, ok := decodeCheckSpecs(raw)
		if !ok {
			return
		}
		var result struct {
			Results json.RawMessage `json:"results"`
		}
		if err := resp.Decode(&result); err != nil || len(result.Results) == 0 {
			return
		}
		c.pcache.SetCheckManyResult(ctx, specs, result.Results, c.config.CacheTTL)
	case endpointGrant, endpointGrantMany, endpointRevoke, endpointRevokeMany:
		// Invalidation runs only after the mutation has succeeded, so a
		// sequential grant-then-check never observes the pre-grant decision.
		if subjects := mutationSubjects(raw); len(subjects) > 0 {
			c.pcache.InvalidateSubjects(ctx, subjects)
		}
	}
}

func decodeCheckSpec(raw []byte) (cache.CheckSpec, bool) {
	var spec cache.CheckSpec
	if err := json.Unmarshal(raw, &spec); err != nil || len(spec.Subjects) == 0 {
		return cache.CheckSpec{}, false
	}
	return spec, true
}

func decodeCheckSpecs(raw []byte) ([]cache.CheckSpec, bool) {
	var body struct {
		Checks []cache.CheckSpec `json:"checks"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Checks) == 0 {
		return nil, false
	}
	return body.Checks, true
}

// mutationSubjects extracts every subject named by a grant/revoke body, in
// order and without de-duplication.
func mutationSubjects(raw []byte) []string {
	var body struct {
		Subject string `json:"subject"`
		Grants  []struct {
			Subject string `json:"subject"`
		} `json:"grants"`
		Revocations []struct {
			Subject string `json:"subject"`
		} `json:"revocations"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	var subjects []string
	if body.Subject != "" {
		subjects = append(subjects, body.Subject)
	}
	for _, g := range body.Grants {
		if g.Subject != "" {
			subjects = append(subjects, g.Subject)
		}
	}
	for _, r := range body.Revocations {
		if r.Subject != "" {
			subjects = append(subjects, r.Subject)
		}
	}
	return subjects
}

// Close releases the pooled connections and the cache backend. Safe to call
// more than once; calls after the first are no-ops.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return c.pcache.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
