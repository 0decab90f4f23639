// Package limits provides resource limit (quota) operations of the
// Permission Service API: configuring limits, read-only checks, usage
// increments, and usage inspection.
package limits

import (
	"context"
	"fmt"
	"net/http"
	"time"

	permkit "github.com/permkit/permkit-go"
)

// Window types accepted by Set.
const (
	WindowHourly  = "hourly"
	WindowDaily   = "daily"
	WindowMonthly = "monthly"
	WindowTotal   = "total"
)

// LimitDetail is a configured limit as returned by Set and List. When Set
// changes the window type of an existing limit the service resets usage to
// zero and reports the change through WindowChanged, PreviousWindowType and
// PreviousUsage.
type LimitDetail struct {
	LimitID            int              `json:"limit_id"`
	Subject            string           `json:"subject"`
	ResourceType       string           `json:"resource_type"`
	Scope              string           `json:"scope"`
	LimitValue         int              `json:"limit_value"`
	WindowType         string           `json:"window_type"`
	TenantID           string           `json:"tenant_id,omitempty"`
	ObjectID           string           `json:"object_id,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	Metadata           permkit.Metadata `json:"metadata,omitempty"`
	WindowChanged      bool             `json:"window_changed,omitempty"`
	PreviousWindowType string           `json:"previous_window_type,omitempty"`
	PreviousUsage      *int             `json:"previous_usage,omitempty"`
}

// CheckResult is the outcome of a read-only limit check.
type CheckResult struct {
	Allowed      bool      `json:"allowed"`
	Limit        int       `json:"limit"`
	CurrentUsage int       `json:"current_usage"`
	Remaining    int       `json:"remaining"`
	WouldExceed  bool      `json:"would_exceed"`
	WindowType   string    `json:"window_type"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	ResetsAt     time.Time `json:"resets_at"`
}

// CheckRequest is one check in a batch call. CheckID correlates the result
// in the batch response.
type CheckRequest struct {
	CheckID      string `json:"check_id,omitempty"`
	Subject      string `json:"subject"`
	ResourceType string `json:"resource_type"`
	Scope        string `json:"scope"`
	Amount       int    `json:"amount"`
	TenantID     string `json:"tenant_id,omitempty"`
	ObjectID     string `json:"object_id,omitempty"`
}

// SingleCheckResult is one result of a batch check, in request order.
type SingleCheckResult struct {
	CheckID      string    `json:"check_id,omitempty"`
	Allowed      bool      `json:"allowed"`
	Limit        int       `json:"limit"`
	CurrentUsage int       `json:"current_usage"`
	Remaining    int       `json:"remaining"`
	WouldExceed  bool      `json:"would_exceed"`
	WindowType   string    `json:"window_type"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	ResetsAt     time.Time `json:"resets_at"`
}

// IncrementRequest is one increment in a batch call.
type IncrementRequest struct {
	Subject      string `json:"subject"`
	ResourceType string `json:"resource_type"`
	Scope        string `json:"scope"`
	Amount       int    `json:"amount"`
	TenantID     string `json:"tenant_id,omitempty"`
	ObjectID     string `json:"object_id,omitempty"`
}

// IncrementResult is the outcome of a usage increment.
type IncrementResult struct {
	Success      bool      `json:"success"`
	CurrentUsage int       `json:"current_usage"`
	Limit        int       `json:"limit"`
	Remaining    int       `json:"remaining"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
}

// UsageDetail is the current usage of one limit.
type UsageDetail struct {
	Subject         string     `json:"subject"`
	ResourceType    string     `json:"resource_type"`
	Scope           string     `json:"scope"`
	Limit           int        `json:"limit"`
	CurrentUsage    int        `json:"current_usage"`
	Remaining       int        `json:"remaining"`
	WindowType      string     `json:"window_type"`
	WindowStart     time.Time  `json:"window_start"`
	WindowEnd       time.Time  `json:"window_end"`
	LastIncrementAt *time.Time `json:"last_increment_at,omitempty"`
	IsExpired       bool       `json:"is_expired"`
}

// ResetResult is the outcome of a manual usage reset.
type ResetResult struct {
	Reset         bool `json:"reset"`
	PreviousUsage int  `json:"previous_usage"`
	CurrentUsage  int  `json:"current_usage"`
}

// Client is a client for the limits endpoints.
type Client struct {
	client *permkit.Client
}

// NewClient creates a new client using the provided permkit.Client.
func NewClient(c *permkit.Client) *Client {
	return &Client{client: c}
}

func (c *Client) validateTarget(subject, resourceType, scope string) error {
	if c.client.ValidateIdentifiers() {
		if err := permkit.ValidateSubjectIdentifier(subject); err != nil {
			return err
		}
	}
	if resourceType == "" {
		return &permkit.Error{Kind: permkit.KindValidation, Message: "resource_type is required", Field: "resource_type"}
	}
	if scope == "" {
		return &permkit.Error{Kind: permkit.KindValidation, Message: "scope is required", Field: "scope"}
	}
	return nil
}

// Set configures a limit, or updates it if one already exists for the same
// subject, resource type, and scope. Changing the window type resets usage;
// the returned detail reports the previous window and usage when that
// happens.
func (c *Client) Set(ctx context.Context, subject, resourceType, scope string, limitValue int, windowType string, opt ...Option) (*LimitDetail, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	if err := c.validateTarget(subject, resourceType, scope); err != nil {
		return nil, err
	}
	if limitValue < 0 {
		return nil, &permkit.Error{Kind: permkit.KindValidation, Message: "limit_value must not be negative", Field: "limit_value"}
	}
	switch windowType {
	case WindowHourly, WindowDaily, WindowMonthly, WindowTotal:
	default:
		return nil, &permkit.Error{Kind: permkit.KindValidation, Message: fmt.Sprintf("invalid window_type %q", windowType), Field: "window_type"}
	}
	opts := getOpts(opt...)

	body := opts.postMap
	body["subject"] = subject
	body["resource_type"] = resourceType
	body["scope"] = scope
	body["limit_value"] = limitValue
	body["window_type"] = windowType

	resp, err := c.client.Request(ctx, http.MethodPost, "limits/set", body, nil)
	if err != nil {
		return nil, err
	}
	detail := new(LimitDetail)
	if err := resp.Decode(detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// Check reports whether consuming an amount would stay within the limit.
// It never increments the counter; the default amount is 1, see WithAmount.
func (c *Client) Check(ctx context.Context, subject, resourceType, scope string, opt ...Option) (*CheckResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	if err := c.validateTarget(subject, resourceType, scope); err != nil {
		return nil, err
	}
	opts := getOpts(opt...)

	body := opts.postMap
	body["subject"] = subject
	body["resource_type"] = resourceType
	body["scope"] = scope
	if _, ok := body["amount"]; !ok {
		body["amount"] = 1
	}

	resp, err := c.client.Request(ctx, http.MethodPost, "limits/check", body, nil)
	if err != nil {
		return nil, err
	}
	result := new(CheckResult)
	if err := resp.Decode(result); err != nil {
		return nil, err
	}
	return result, nil
}

// CheckMany performs a batch of read-only limit checks in one round trip.
// Results come back in request order; hierarchy enforcement (for example
// org plus system limits) is left to the caller.
func (c *Client) CheckMany(ctx context.Context, checks []CheckRequest) ([]SingleCheckResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	for i := range checks {
		if err := c.validateTarget(checks[i].Subject, checks[i].ResourceType, checks[i].Scope); err != nil {
			return nil, err
		}
		if checks[i].Amount == 0 {
			checks[i].Amount = 1
		}
	}

	body := map[string]any{"checks": checks}
	resp, err := c.client.Request(ctx, http.MethodPost, "limits/check-many", body, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Results []SingleCheckResult `json:"results"`
	}
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// Increment adds to a usage counter. The default amount is 1, see
// WithAmount. A limit must already be configured for the target.
func (c *Client) Increment(ctx context.Context, subject, resourceType, scope string, opt ...Option) (*IncrementResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	if err := c.validateTarget(subject, resourceType, scope); err != nil {
		return nil, err
	}
	opts := getOpts(opt...)

	body := opts.postMap
	body["subject"] = subject
	body["resource_type"] = resourceType
	body["scope"] = scope
	if _, ok := body["amount"]; !ok {
		body["amount"] = 1
	}

	resp, err := c.client.Request(ctx, http.MethodPost, "limits/increment", body, nil)
	if err != nil {
		return nil, err
	}
	result := new(IncrementResult)
	if err := resp.Decode(result); err != nil {
		return nil, err
	}
	return result, nil
}

// IncrementMany performs a batch of usage increments in one round trip,
// typically one per level of a subject hierarchy.
func (c *Client) IncrementMany(ctx context.Context, increments []IncrementRequest) ([]IncrementResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	for i := range increments {
		if err := c.validateTarget(increments[i].Subject, increments[i].ResourceType, increments[i].Scope); err != nil {
			return nil, err
		}
		if increments[i].Amount == 0 {
			increments[i].Amount = 1
		}
	}

	body := map[string]any{"increments": increments}
	resp, err := c.client.Request(ctx, http.MethodPost, "limits/increment-many", body, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Results []IncrementResult `json:"results"`
	}
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// Usage fetches the current usage of one limit.
func (c *Client) Usage(ctx context.Context, subject, resourceType, scope string, opt ...Option) (*UsageDetail, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	if err := c.validateTarget(subject, resourceType, scope); err != nil {
		return nil, err
	}
	opts := getOpts(opt...)

	q := opts.queryValues()
	q.Set("subject", subject)
	q.Set("resource_type", resourceType)
	q.Set("scope", scope)

	resp, err := c.client.Request(ctx, http.MethodGet, "limits/usage", nil, q)
	if err != nil {
		return nil, err
	}
	detail := new(UsageDetail)
	if err := resp.Decode(detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// Reset sets a usage counter back to zero and reports the previous value.
func (c *Client) Reset(ctx context.Context, subject, resourceType, scope string, opt ...Option) (*ResetResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	if err := c.validateTarget(subject, resourceType, scope); err != nil {
		return nil, err
	}
	opts := getOpts(opt...)

	body := opts.postMap
	body["subject"] = subject
	body["resource_type"] = resourceType
	body["scope"] = scope

	resp, err := c.client.Request(ctx, http.MethodPost, "limits/reset", body, nil)
	if err != nil {
		return nil, err
	}
	result := new(ResetResult)
	if err := resp.Decode(result); err != nil {
		return nil, err
	}
	return result, nil
}

// List returns one page of configured limits matching the filter options.
func (c *Client) List(ctx context.Context, opt ...Option) (*permkit.Page[LimitDetail], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	opts := getOpts(opt...)

	resp, err := c.client.Request(ctx, http.MethodGet, "limits", nil, opts.queryValues())
	if err != nil {
		return nil, err
	}
	var result struct {
		Total  int           `json:"total"`
		Limit  int           `json:"limit"`
		Offset int           `json:"offset"`
		Limits []LimitDetail `json:"limits"`
	}
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return &permkit.Page[LimitDetail]{
		Total:  result.Total,
		Limit:  result.Limit,
		Offset: result.Offset,
		Items:  result.Limits,
	}, nil
}
