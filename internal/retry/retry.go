// Package retry wraps a single provider call with bounded retries and
// exponential backoff with jitter.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Policy configures retry behaviour for one provider. The zero value is not
// usable; construct with NewPolicy.
type Policy struct {
	// MaxAttempts is the total number of calls, first attempt included.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff: the delay before attempt n
	// (n >= 2) is BaseDelay * 2^(n-2), clamped to MaxDelay, plus jitter.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPolicy returns a Policy with a time-seeded jitter source.
func NewPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) *Policy {
	return NewPolicyWithSeed(maxAttempts, baseDelay, maxDelay, time.Now().UnixNano())
}

// NewPolicyWithSeed returns a Policy with a fixed jitter seed, for
// deterministic tests.
func NewPolicyWithSeed(maxAttempts int, baseDelay, maxDelay time.Duration, seed int64) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Backoff returns the delay to sleep before the given attempt (1-based).
// Attempt 1 has no delay. The deterministic part doubles per attempt and is
// clamped to MaxDelay; uniform jitter in [0, delay] is added on top, so the
// result is always within [delay, 2*delay].
func (p *Policy) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt-2))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	p.mu.Lock()
	jitter := p.rng.Float64() * delay
	p.mu.Unlock()
	return time.Duration(delay + jitter)
}

// Do runs fn up to MaxAttempts times, sleeping Backoff between attempts.
// A non-retryable error (per the retryable classifier) is returned
// immediately; exhausting attempts returns the last error. Backoff waits are
// cancelled when ctx ends. Attempts count and last error are both reported.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error, retryable func(error) bool) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return attempt - 1, ctx.Err()
			case <-time.After(p.Backoff(attempt)):
			}
		}

		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return attempt, lastErr
		}
		if !retryable(err) {
			return attempt, lastErr
		}
	}
	return p.MaxAttempts, fmt.Errorf("exhausted %d attempts: %w", p.MaxAttempts, lastErr)
}
