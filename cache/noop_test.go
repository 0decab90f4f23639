package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoOp(t *testing.T) {
	ctx := context.Background()
	store := NewNoOp()

	// Writes report success but nothing is ever stored.
	assert.True(t, store.Set(ctx, "k", true, NoTTL))
	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, store.Exists(ctx, "k"))

	assert.False(t, store.Delete(ctx, "k"))
	assert.Equal(t, 0, store.DeletePattern(ctx, "*"))
	assert.True(t, store.Clear(ctx))
	assert.NoError(t, store.Close())
}
