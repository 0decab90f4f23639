// Package permissions provides the permission grant/revoke/check/list
// operations of the Permission Service API.
package permissions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	permkit "github.com/permkit/permkit-go"
)

// GrantRequest is one grant in a batch call.
type GrantRequest struct {
	Subject   string          `json:"subject"`
	Scope     string          `json:"scope"`
	Action    string          `json:"action"`
	TenantID  string          `json:"tenant_id,omitempty"`
	ObjectID  string          `json:"object_id,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Metadata  permkit.Metadata `json:"metadata,omitempty"`
}

// RevokeRequest is one revocation in a batch call.
type RevokeRequest struct {
	Subject  string `json:"subject"`
	Scope    string `json:"scope"`
	Action   string `json:"action"`
	TenantID string `json:"tenant_id,omitempty"`
	ObjectID string `json:"object_id,omitempty"`
}

// CheckRequest is one check in a batch call. Subjects are checked in the
// order given; CheckID correlates the result in the batch response.
type CheckRequest struct {
	Subjects []string `json:"subjects"`
	Scope    string   `json:"scope"`
	Action   string   `json:"action"`
	TenantID string   `json:"tenant_id,omitempty"`
	ObjectID string   `json:"object_id,omitempty"`
	CheckID  string   `json:"check_id,omitempty"`
}

// CheckResult is the decision for one check of a batch.
type CheckResult struct {
	Allowed             bool   `json:"allowed"`
	MatchedSubject      string `json:"matched_subject,omitempty"`
	MatchedAssignmentID int    `json:"matched_assignment_id,omitempty"`
	CheckID             string `json:"check_id,omitempty"`
}

// PermissionAssignment is a granted permission as returned by grant calls.
type PermissionAssignment struct {
	AssignmentID int             `json:"assignment_id"`
	Subject      string          `json:"subject"`
	Scope        string          `json:"scope"`
	Action       string          `json:"action"`
	TenantID     string          `json:"tenant_id,omitempty"`
	ObjectID     string          `json:"object_id,omitempty"`
	GrantedAt    time.Time       `json:"granted_at"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	Metadata     permkit.Metadata `json:"metadata,omitempty"`
}

// PermissionDetail is the denormalized shape returned by list calls.
type PermissionDetail struct {
	AssignmentID       int             `json:"assignment_id"`
	Subject            string          `json:"subject"`
	SubjectType        string          `json:"subject_type"`
	SubjectDisplayName string          `json:"subject_display_name,omitempty"`
	Scope              string          `json:"scope"`
	ScopeDisplayName   string          `json:"scope_display_name,omitempty"`
	Action             string          `json:"action"`
	TenantID           string          `json:"tenant_id,omitempty"`
	ObjectID           string          `json:"object_id,omitempty"`
	GrantedAt          time.Time       `json:"granted_at"`
	ExpiresAt          *time.Time      `json:"expires_at,omitempty"`
	IsValid            bool            `json:"is_valid"`
	Metadata           permkit.Metadata `json:"metadata,omitempty"`
}

// GrantManyResult reports a batch grant.
type GrantManyResult struct {
	Granted     int                    `json:"granted"`
	Assignments []PermissionAssignment `json:"assignments"`
}

// Client is a client for the permissions endpoints.
type Client struct {
	client *permkit.Client
}

// NewClient creates a new client using the provided permkit.Client.
func NewClient(c *permkit.Client) *Client {
	return &Client{client: c}
}

// Grant grants a permission to a subject. The operation is an idempotent
// upsert: granting an existing permission updates its expiry and metadata.
func (c *Client) Grant(ctx context.Context, subject, scope, action string, opt ...Option) (*PermissionAssignment, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	if err := permkit.ValidateGrant(subject, scope, action, c.client.ValidateIdentifiers()); err != nil {
		return nil, err
	}
	opts := getOpts(opt...)

	body := opts.postMap
	body["subject"] = subject
	body["scope"] = strings.ToLower(scope)
	body["action"] = strings.ToLower(action)

	resp, err := c.client.Request(ctx, http.MethodPost, "permissions/grant", body, nil)
	if err != nil {
		return nil, err
	}
	assignment := new(PermissionAssignment)
	if err := resp.Decode(assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// GrantMany grants a batch of permissions in one round trip.
func (c *Client) GrantMany(ctx context.Context, grants []GrantRequest) (*GrantManyResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	for i := range grants {
		if err := permkit.ValidateGrant(grants[i].Subject, grants[i].Scope, grants[i].Action, c.client.ValidateIdentifiers()); err != nil {
			return nil, err
		}
		grants[i].Scope = strings.ToLower(grants[i].Scope)
		grants[i].Action = strings.ToLower(grants[i].Action)
	}

	body := map[string]any{"grants": grants}
	resp, err := c.client.Request(ctx, http.MethodPost, "permissions/grant-many", body, nil)
	if err != nil {
		return nil, err
	}
	result := new(GrantManyResult)
	if err := resp.Decode(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Revoke removes a permission, reporting whether it existed.
func (c *Client) Revoke(ctx context.Context, subject, scope, action string, opt ...Option) (bool, error) {
	if c.client == nil {
		return false, fmt.Errorf("nil client")
	}
	if err := permkit.ValidateGrant(subject, scope, action, c.client.ValidateIdentifiers()); err != nil {
		return false, err
	}
	opts := getOpts(opt...)

	body := opts.postMap
	body["subject"] = subject
	body["scope"] = strings.ToLower(scope)
	body["action"] = strings.ToLower(action)

	resp, err := c.client.Request(ctx, http.MethodPost, "permissions/revoke", body, nil)
	if err != nil {
		return false, err
	}
	var result struct {
		Revoked bool `json:"revoked"`
	}
	if err := resp.Decode(&result); err != nil {
		return false, err
	}
	return result.Revoked, nil
}

// RevokeMany revokes a batch of permissions and returns how many existed.
func (c *Client) RevokeMany(ctx context.Context, revocations []RevokeRequest) (int, error) {
	if c.client == nil {
		return 0, fmt.Errorf("nil client")
	}
	for i := range revocations {
		if err := permkit.ValidateGrant(revocations[i].Subject, revocations[i].Scope, revocations[i].Action, c.client.ValidateIdentifiers()); err != nil {
			return 0, err
		}
		revocations[i].Scope = strings.ToLower(revocations[i].Scope)
		revocations[i].Action = strings.ToLower(revocations[i].Action)
	}

	body := map[string]any{"revocations": revocations}
	resp, err := c.client.Request(ctx, http.MethodPost, "permissions/revoke-many", body, nil)
	if err != nil {
		return 0, err
	}
	var result struct {
		RevokedCount int `json:"revoked_count"`
	}
	if err := resp.Decode(&result); err != nil {
		return 0, err
	}
	return result.RevokedCount, nil
}

// Check reports whether any of the subjects holds the permission. With
// caching enabled the result may be served from the cache without a network
// call; grants and revokes for a subject invalidate its cached checks.
func (c *Client) Check(ctx context.Context, subjects []string, scope, action string, opt ...Option) (bool, error) {
	if c.client == nil {
		return false, fmt.Errorf("nil client")
	}
	opts := getOpts(opt...)

	body := opts.postMap
	body["subjects"] = subjects
	body["scope"] = strings.ToLower(scope)
	body["action"] = strings.ToLower(action)

	resp, err := c.client.Request(ctx, http.MethodPost, "permissions/check", body, nil)
	if err != nil {
		return false, err
	}
	var result struct {
		Allowed bool `json:"allowed"`
	}
	if err := resp.Decode(&result); err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// CheckMany evaluates a batch of checks in one query. The batch is
// cache-eligible as a unit: the same set of checks, in any order, hits the
// same cache entry.
func (c *Client) CheckMany(ctx context.Context, checks []CheckRequest) ([]CheckResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	for i := range checks {
		checks[i].Scope = strings.ToLower(checks[i].Scope)
		checks[i].Action = strings.ToLower(checks[i].Action)
	}

	body := map[string]any{"checks": checks}
	resp, err := c.client.Request(ctx, http.MethodPost, "permissions/check-many", body, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Results []CheckResult `json:"results"`
	}
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// List returns one page of permissions matching the filter options.
func (c *Client) List(ctx context.Context, opt ...Option) (*permkit.Page[PermissionDetail], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	opts := getOpts(opt...)

	resp, err := c.client.Request(ctx, http.MethodGet, "permissions", nil, opts.queryValues())
	if err != nil {
		return nil, err
	}
	var result struct {
		Total       int                `json:"total"`
		Limit       int                `json:"limit"`
		Offset      int                `json:"offset"`
		Permissions []PermissionDetail `json:"permissions"`
	}
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return &permkit.Page[PermissionDetail]{
		Total:  result.Total,
		Limit:  result.Limit,
		Offset: result.Offset,
		Items:  result.Permissions,
	}, nil
}
