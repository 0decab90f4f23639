package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStoreSelection(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  Config
		want any
	}{
		{
			name: "disabled",
			cfg:  Config{Enabled: false, Backend: BackendMemory},
			want: &NoOp{},
		},
		{
			name: "memory",
			cfg:  Config{Enabled: true, Backend: BackendMemory},
			want: &Memory{},
		},
		{
			name: "none",
			cfg:  Config{Enabled: true, Backend: BackendNone},
			want: &NoOp{},
		},
		{
			name: "unknown backend",
			cfg:  Config{Enabled: true, Backend: "memcached"},
			want: &NoOp{},
		},
		{
			name: "redis without url falls back to memory",
			cfg:  Config{Enabled: true, Backend: BackendRedis},
			want: &Memory{},
		},
		{
			name: "redis with invalid url falls back to memory",
			cfg:  Config{Enabled: true, Backend: BackendRedis, RedisURL: "://not-a-url"},
			want: &Memory{},
		},
		{
			name: "redis unreachable falls back to memory",
			cfg:  Config{Enabled: true, Backend: BackendRedis, RedisURL: "redis://127.0.0.1:1/0"},
			want: &Memory{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New(ctx, tt.cfg)
			assert.IsType(t, tt.want, store)
			_ = store.Close()
		})
	}
}
