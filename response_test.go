package permkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseDecode(t *testing.T) {
	resp := &Response{Status: 200, Body: []byte(`{"allowed": true}`)}
	var result struct {
		Allowed bool `json:"allowed"`
	}
	require.NoError(t, resp.Decode(&result))
	assert.True(t, result.Allowed)

	// Empty bodies, like 204 responses, decode as no-ops.
	empty := &Response{Status: 204}
	result.Allowed = false
	require.NoError(t, empty.Decode(&result))
	assert.False(t, result.Allowed)

	bad := &Response{Status: 200, Body: []byte(`{`)}
	assert.Error(t, bad.Decode(&result))
}

func TestPage(t *testing.T) {
	page := &Page[int]{Total: 25, Limit: 10, Offset: 0, Items: make([]int, 10)}
	assert.True(t, page.HasMore())
	assert.Equal(t, 10, page.NextOffset())
	assert.Equal(t, 3, page.TotalPages())

	last := &Page[int]{Total: 25, Limit: 10, Offset: 20, Items: make([]int, 5)}
	assert.False(t, last.HasMore())
	assert.Equal(t, -1, last.NextOffset())

	empty := &Page[int]{Total: 0, Limit: 10, Offset: 0}
	assert.False(t, empty.HasMore())
	assert.Equal(t, -1, empty.NextOffset())
	assert.Equal(t, 0, empty.TotalPages())
}

func TestDecodeMetadata(t *testing.T) {
	md := Metadata{
		"department": "engineering",
		"priority":   3,
		"granted_by": "admin:root",
		"renewed_at": "2026-08-30T12:00:00Z",
	}

	var target struct {
		Department string    `json:"department"`
		Priority   int       `json:"priority"`
		GrantedBy  string    `json:"granted_by"`
		RenewedAt  time.Time `json:"renewed_at"`
	}
	require.NoError(t, DecodeMetadata(md, &target))
	assert.Equal(t, "engineering", target.Department)
	assert.Equal(t, 3, target.Priority)
	assert.Equal(t, "admin:root", target.GrantedBy)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), target.RenewedAt)
}
