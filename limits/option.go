package limits

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

// WithAmount sets the amount a check or increment operates on. The default
// is 1.
func WithAmount(amount int) Option {
	return func(o *options) {
		o.postMap["amount"] = amount
	}
}

// WithTenantId scopes the call to a tenant.
func WithTenantId(tenantId string) Option {
	return func(o *options) {
		o.postMap["tenant_id"] = tenantId
		o.queryMap["tenant_id"] = tenantId
	}
}

// WithObjectId targets an object-level limit.
func WithObjectId(objectId string) Option {
	return func(o *options) {
		o.postMap["object_id"] = objectId
		o.queryMap["object_id"] = objectId
	}
}

// WithMetadata attaches open metadata to a limit.
func WithMetadata(metadata permkit.Metadata) Option {
	return func(o *options) {
		o.postMap["metadata"] = metadata
	}
}

// WithSubjectFilter filters a list call by subject.
func WithSubjectFilter(subject string) Option {
	return func(o *options) {
		o.queryMap["subject"] = subject
	}
}

// WithResourceTypeFilter filters a list call by resource type.
func WithResourceTypeFilter(resourceType string) Option {
	return func(o *options) {
		o.queryMap["resource_type"] = resourceType
	}
}

// WithScopeFilter filters a list call by scope.
func WithScopeFilter(scope string) Option {
	return func(o *options) {
		o.queryMap["scope"] = scope
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
