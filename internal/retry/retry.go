// Package retry provides the bounded retry-with-sleep loop used around
// outbound calls. Attempt counts and delays are small and fixed; there is
// no exponential backoff.
package retry

import (
	"context"
	"math/rand"
	"time"
)

type Policy struct {
	Attempts int
	Delay    time.Duration
	Jitter   bool
}

// Do runs fn up to p.Attempts times, sleeping p.Delay between attempts.
// With Jitter enabled up to half of the delay is added at random. The last
// error is returned once attempts are exhausted; a canceled context stops
// the loop immediately.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		delay := p.Delay
		if p.Jitter && delay > 0 {
			delay += time.Duration(rand.Int63n(int64(delay)/2 + 1))
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
