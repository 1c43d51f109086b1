package utils

import (
	"context"
	"fmt"
	"time"
)

// Retry runs fn up to maxAttempts times with exponential backoff:
// base, base*2, base*4, ... The first nil return wins. Once the
// attempts are exhausted the last error is returned, wrapped.
//
// Every navigation in the scraper goes through this one combinator so
// retry semantics cannot drift between call sites. Cancelling ctx
// aborts the backoff wait immediately.
func Retry(ctx context.Context, maxAttempts int, base time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if base <= 0 {
		base = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < maxAttempts {
			wait := base * time.Duration(1<<uint(attempt-1))
			Warn("Attempt %d/%d failed: %v, retrying in %v", attempt, maxAttempts, lastErr, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("all %d attempts failed, last error: %w", maxAttempts, lastErr)
}
