// Package subjects provides subject management operations of the
// Permission Service API. Subjects are the entities permissions attach
// to, such as users, roles, groups, or API clients.
package subjects

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	permkit "github.com/permkit/permkit-go"
)

// Subject is a registered subject.
type Subject struct {
	ID          string           `json:"id"`
	Identifier  string           `json:"identifier"`
	SubjectType string           `json:"subject_type"`
	SubjectID   string           `json:"subject_id"`
	DisplayName string           `json:"display_name,omitempty"`
	TenantID    string           `json:"tenant_id,omitempty"`
	Metadata    permkit.Metadata `json:"metadata,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Client is a client for the subjects endpoints.
type Client struct {
	client *permkit.Client
}

// NewClient creates a new client using the provided permkit.Client.
func NewClient(c *permkit.Client) *Client {
	return &Client{client: c}
}

// Create registers a subject, or updates it if the identifier already
// exists. The identifier must be of the form "type:id".
func (c *Client) Create(ctx context.Context, identifier string, opt ...Option) (*Subject, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	if c.client.ValidateIdentifiers() {
		if err := permkit.ValidateSubjectIdentifier(identifier); err != nil {
			return nil, err
		}
	}
	opts := getOpts(opt...)

	body := opts.postMap
	body["identifier"] = identifier

	resp, err := c.client.Request(ctx, http.MethodPost, "subjects", body, nil)
	if err != nil {
		return nil, err
	}
	subject := new(Subject)
	if err := resp.Decode(subject); err != nil {
		return nil, err
	}
	return subject, nil
}

// Read fetches a subject by identifier.
func (c *Client) Read(ctx context.Context, identifier string, opt ...Option) (*Subject, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	if identifier == "" {
		return nil, &permkit.Error{Kind: permkit.KindValidation, Message: "identifier is required", Field: "identifier"}
	}
	opts := getOpts(opt...)

	resp, err := c.client.Request(ctx, http.MethodGet, "subjects/"+url.PathEscape(identifier), nil, opts.queryValues())
	if err != nil {
		return nil, err
	}
	subject := new(Subject)
	if err := resp.Decode(subject); err != nil {
		return nil, err
	}
	return subject, nil
}

// List returns one page of subjects matching the filter options.
func (c *Client) List(ctx context.Context, opt ...Option) (*permkit.Page[Subject], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}
	opts := getOpts(opt...)

	resp, err := c.client.Request(ctx, http.MethodGet, "subjects", nil, opts.queryValues())
	if err != nil {
		return nil, err
	}
	var result struct {
		Total    int       `json:"total"`
		Limit    int       `json:"limit"`
		Offset   int       `json:"offset"`
		Subjects []Subject `json:"subjects"`
	}
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	return &permkit.Page[Subject]{
		Total:  result.Total,
		Limit:  result.Limit,
		Offset: result.Offset,
		Items:  result.Subjects,
	}, nil
}

// Delete deactivates a subject. The subject's permission assignments stop
// matching but its row is kept, so a later Create reactivates it.
func (c *Client) Delete(ctx context.Context, identifier string) (bool, error) {
	if c.client == nil {
		return false, fmt.Errorf("nil client")
	}
	if identifier == "" {
		return false, &permkit.Error{Kind: permkit.KindValidation, Message: "identifier is required", Field: "identifier"}
	}

	_, err := c.client.Request(ctx, http.MethodDelete, "subjects/"+url.PathEscape(identifier), nil, nil)
	if err != nil {
		return false, err
	}
	return true, nil
}
