package permkit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := exponentialBackoff(100*time.Millisecond, 2.0)

	waits := make([]time.Duration, 4)
	for i := range waits {
		waits[i] = backoff(0, 0, i, nil)
	}
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}, waits)

	// Multiplier 1 keeps the wait flat, never shrinking.
	flat := exponentialBackoff(50*time.Millisecond, 1.0)
	assert.Equal(t, 50*time.Millisecond, flat(0, 0, 0, nil))
	assert.Equal(t, 50*time.Millisecond, flat(0, 0, 5, nil))
}

func TestCheckRetryPolicy(t *testing.T) {
	policy := checkRetryPolicy(map[int]bool{429: true, 500: true, 503: true})
	ctx := context.Background()

	t.Run("retries transport errors", func(t *testing.T) {
		retry, err := policy(ctx, nil, assert.AnError)
		require.NoError(t, err)
		assert.True(t, retry)
	})

	t.Run("retries configured statuses", func(t *testing.T) {
		for _, status := range []int{429, 500, 503} {
			retry, err := policy(ctx, &http.Response{StatusCode: status}, nil)
			require.NoError(t, err)
			assert.True(t, retry, "status %d", status)
		}
	})

	t.Run("does not retry other statuses", func(t *testing.T) {
		for _, status := range []int{200, 204, 400, 401, 404, 409} {
			retry, err := policy(ctx, &http.Response{StatusCode: status}, nil)
			require.NoError(t, err)
			assert.False(t, retry, "status %d", status)
		}
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(context.Background())
		cancel()
		retry, err := policy(canceled, &http.Response{StatusCode: 500}, nil)
		assert.False(t, retry)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
