package scopes

import (
	"net/url"
	"strconv"

	permkit "github.com/permkit/permkit-go"
)

// Option is a func that sets optional attributes for a call. Options are
// processed in the order they appear, so for a given attribute the last call
// takes effect.
type Option func(*options)

type options struct {
	postMap  map[string]any
	queryMap map[string]string
}

func getDefaultOptions() options {
	return options{
		postMap:  make(map[string]any),
		queryMap: make(map[string]string),
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	for _, o := range opt {
		o(&opts)
	}
	return opts
}

func (o options) queryValues() url.Values {
	q := url.Values{}
	for k, v := range o.queryMap {
		q.Set(k, v)
	}
	return q
}

// WithDisplayName sets a human readable name on a scope.
func WithDisplayName(displayName string) Option {
	return func(o *options) {
		o.postMap["display_name"] = displayName
	}
}

// WithDescription sets a description on a scope.
func WithDescription(description string) Option {
	return func(o *options) {
		o.postMap["description"] = description
	}
}

// WithMetadata attaches open metadata to a scope.
func WithMetadata(metadata permkit.Metadata) Option {
	return func(o *options) {
		o.postMap["metadata"] = metadata
	}
}

// WithScopeTypeFilter filters a list call by scope type.
func WithScopeTypeFilter(scopeType string) Option {
	return func(o *options) {
		o.queryMap["scope_type"] = scopeType
	}
}

// WithSearch filters a list call by a substring of the display name or
// description.
func WithSearch(search string) Option {
	return func(o *options) {
		o.queryMap["search"] = search
	}
}

// WithIncludeInactive includes deactivated scopes in a list call.
func WithIncludeInactive(include bool) Option {
	return func(o *options) {
		o.queryMap["include_inactive"] = strconv.FormatBool(include)
	}
}

// WithLimit sets the page size of a list call.
func WithLimit(limit int) Option {
	return func(o *options) {
		o.queryMap["limit"] = strconv.Itoa(limit)
	}
}

// WithOffset sets the page offset of a list call.
func WithOffset(offset int) Option {
	return func(o *options) {
		o.queryMap["offset"] = strconv.Itoa(offset)
	}
}
