package permkit

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mitchellh/mapstructure"
)

// Response wraps a successful API response. Body holds the raw JSON; for 204
// responses and cache hits it is synthesized by the transport.
type Response struct {
	// Status is the HTTP status code, or 0 when the response was served from
	// the local cache without a network call.
	Status int

	// Header carries the response headers, nil for cache hits.
	Header http.Header

	// Body is the raw JSON body. Empty bodies decode as no-ops.
	Body json.RawMessage
}

// Decode unmarshals the response body into target. A nil or empty body
// leaves target untouched.
func (r *Response) Decode(target any) error {
	if len(r.Body) == 0 || target == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("error decoding response body: %w", err)
	}
	return nil
}

// Page is one page of a list response. Items are decoded by the resource
// packages since the items key differs per endpoint.
type Page[T any] struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Items  []T `json:"-"`
}

// HasMore reports whether pages remain after this one.
func (p *Page[T]) HasMore() bool {
	return p.Offset+len(p.Items) < p.Total
}

// NextOffset returns the offset for the next page, or -1 when this is the
// last page.
func (p *Page[T]) NextOffset() int {
	if !p.HasMore() {
		return -1
	}
	return p.Offset + p.Limit
}

// TotalPages returns the page count implied by Total and Limit.
func (p *Page[T]) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// Metadata is the open string-keyed map attached to permissions, subjects,
// scopes and limits. The service imposes no schema on it.
type Metadata = map[string]any

// DecodeMetadata decodes an open metadata map into a caller-defined struct,
// honoring `json` field tags.
func DecodeMetadata(md Metadata, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     target,
		TagName:    "json",
		DecodeHook: mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("error building metadata decoder: %w", err)
	}
	if err := dec.Decode(md); err != nil {
		return fmt.Errorf("error decoding metadata: %w", err)
	}
	return nil
}
