package http

import (
	"context"
	"time"
)

// fetchFunc is the signature for a fetch function.
type fetchFunc func(ctx context.Context, url string) ([]byte, error)

// fetchWithRetry calls fetch once plus once per entry of delays, sleeping
// delays[i] before retry i. It returns the last error if every attempt
// fails.
func fetchWithRetry(ctx context.Context, url string, fetch fetchFunc, delays []time.Duration) ([]byte, error) {
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		body, err := fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt >= maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return nil, lastErr
}
