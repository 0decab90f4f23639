package cache

import (
	"context"
	"time"
)

var _ Store = (*NoOp)(nil)

// NoOp is the store used when caching is disabled: every write reports
// success but stores nothing, every read misses. Callers never need a nil
// check.
type NoOp struct{}

// NewNoOp returns the disabled-cache store.
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (n *NoOp) Get(context.Context, string) (any, bool) { return nil, false }

func (n *NoOp) Set(context.Context, string, any, time.Duration) bool { return true }

func (n *NoOp) Delete(context.Context, string) bool { return false }

func (n *NoOp) DeletePattern(context.Context, string) int { return 0 }

func (n *NoOp) Exists(context.Context, string) bool { return false }

func (n *NoOp) Clear(context.Context) bool { return true }

func (n *NoOp) Close() error { return nil }
