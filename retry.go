package permkit

import (
	"context"
	"math"
	"net/http"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// checkRetryPolicy returns a retryablehttp.CheckRetry that retries on any
// transport-level error and on responses whose status is in the configured
// retry set. The attempt budget itself is enforced by retryablehttp via
// RetryMax, so the policy is a pure function of the outcome.
func checkRetryPolicy(retryOnStatus map[int]bool) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		if resp != nil && retryOnStatus[resp.StatusCode] {
			return true, nil
		}
		return false, nil
	}
}

// exponentialBackoff returns a retryablehttp.Backoff computing
// base * multiplier^attempt. The wait is deterministic and strictly
// increasing in the attempt number; no jitter and no cap are applied.
func exponentialBackoff(base time.Duration, multiplier float64) retryablehttp.Backoff {
	return func(_, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
		return time.Duration(float64(base) * math.Pow(multiplier, float64(attemptNum)))
	}
}
