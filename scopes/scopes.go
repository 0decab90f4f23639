// Package scopes provides scope management operations of the Permission
// Service API. Scopes name the functional areas permissions apply to,
// such as "documents.management".
package scopes

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	permkit "github.com/permkit/permkit-go"
)

// Scope is a registered scope.
type Scope struct {
	ID          int              `json:"id"`
	Identifier  string           `json:"identifier"`
	DisplayName string           `json:"display_name,omitempty"`
	Description string           `json:"description,omitempty"`
	Metadata    permkit.Metadata `json:"metadata,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Client is a client for the scopes endpoints.
type Client struct {
	client *permkit.Client
}

// NewClient creates a new client using the provided permkit.Client.
func NewClient(c *permkit.Client) *Client {
	return &Client{client: c}
}

// Create registers a scope, or updates it if the identifier already exists.
func (c *Client) Create(ctx context.Context, identifier string, opt ...Option) (*Scope, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	if c.client.ValidateIdentifiers() {
		if err := permkit.ValidateScopeIdentifier(identifier); err != nil {
			return nil, err
		}
	}
	opts := getOpts(opt...)

	body := opts.postMap
	body["identifier"] = identifier

	resp, err := c.client.Request(ctx, http.MethodPost, "scopes", body, nil)
	if err != nil {
		return nil, err
	}
	scope := new(Scope)
	if err := resp.Decode(scope); err != nil {
		return nil, err
	}
	return scope, nil
}

// Read fetches a scope by identifier.
func (c *Client) Read(ctx context.Context, identifier string) (*Scope, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	if identifier == "" {
		return nil, &permkit.Error{Kind: permkit.KindValidation, Message: "identifier is required", Field: "identifier"}
	}

	resp, err := c.client.Request(ctx, http.MethodGet, "scopes/"+url.PathEscape(identifier), nil, nil)
	if err != nil {
		return nil, err
	}
	scope := new(Scope)
	if err := resp.Decode(scope); err != nil {
		return nil, err
	}
	return scope, nil
}

// List returns one page of scopes matching the filter options.
func (c *Client) List(ctx context.Context, opt ...Option) (*permkit.Page[Scope], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	opts := getOpts(opt...)

	resp, err := c.client.Request(ctx, http.MethodGet, "scopes", nil, opts.queryValues())
	if err != nil {
		return nil, err
	}
	var result struct {
		Total  int     `json:"total"`
		Limit  int     `json:"limit"`
		Offset int     `json:"offset"`
		Scopes []Scope `json:"scopes"`
	}
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return &permkit.Page[Scope]{
		Total:  result.Total,
		Limit:  result.Limit,
		Offset: result.Offset,
		Items:  result.Scopes,
	}, nil
}

// Delete deactivates a scope. Assignments referencing it stop matching but
// remain stored, so a later Create restores them.
func (c *Client) Delete(ctx context.Context, identifier string) (bool, error) {
	if c.client == nil {
		return false, fmt.Errorf("nil client")
	}
	if identifier == "" {
		return false, &permkit.Error{Kind: permkit.KindValidation, Message: "identifier is required", Field: "identifier"}
	}

	_, err := c.client.Request(ctx, http.MethodDelete, "scopes/"+url.PathEscape(identifier), nil, nil)
	if err != nil {
		return false, err
	}
	return true, nil
}
