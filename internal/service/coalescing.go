package service

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/weather-aggregation-service/internal/models"
)

// inFlightFetch is one upstream aggregation shared by every caller that asked
// for the same cache key while it was running.
type inFlightFetch struct {
	done   chan struct{}
	result models.AggregatedWeather
	err    error
}

// requestCoalescer collapses concurrent misses for the same location into a
// single provider fan-out. The first caller runs the fetch; the rest wait on
// its outcome instead of spending provider tokens of their own.
type requestCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightFetch
	timeout  time.Duration
}

func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{
		inFlight: make(map[string]*inFlightFetch),
		timeout:  timeout,
	}
}

// GetOrDo returns the result of an in-flight fetch for key, or starts fn as
// the fetch if none is running. Waiting is bounded by the coalescer timeout
// and the caller's context.
func (rc *requestCoalescer) GetOrDo(ctx context.Context, key string, fn func() (models.AggregatedWeather, error)) (models.AggregatedWeather, error) {
	rc.mu.Lock()
	fetch, exists := rc.inFlight[key]
	if !exists {
		fetch = &inFlightFetch{done: make(chan struct{})}
		rc.inFlight[key] = fetch
		rc.mu.Unlock()

		fetch.result, fetch.err = fn()
		close(fetch.done)

		rc.mu.Lock()
		delete(rc.inFlight, key)
		rc.mu.Unlock()
		return fetch.result, fetch.err
	}
	rc.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()
	select {
	case <-fetch.done:
		return fetch.result, fetch.err
	case <-waitCtx.Done():
		return models.AggregatedWeather{}, waitCtx.Err()
	}
}
