// Package ratelimit gates outbound provider calls with one token bucket per
// provider, calibrated to each provider's published quota.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// BucketConfig describes one provider's token bucket: Capacity tokens at most,
// refilled at RefillPerSecond.
type BucketConfig struct {
	Capacity        int
	RefillPerSecond float64
}

// Limiters holds one token bucket per provider. Buckets are provider-global,
// shared by all requests; each bucket serializes its own state internally so
// a slow provider never blocks acquisition for the others.
type Limiters struct {
	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
	configs map[string]BucketConfig
}

// New builds a Limiters from per-provider bucket configs.
func New(configs map[string]BucketConfig) *Limiters {
	l := &Limiters{
		buckets: make(map[string]*rate.Limiter, len(configs)),
		configs: make(map[string]BucketConfig, len(configs)),
	}
	for provider, cfg := range configs {
		l.buckets[provider] = rate.NewLimiter(rate.Limit(cfg.RefillPerSecond), cfg.Capacity)
		l.configs[provider] = cfg
	}
	return l
}

// TryAcquire takes one token from the provider's bucket without waiting.
// Returns false when the bucket is empty or the provider has no bucket;
// callers must treat false as an immediate terminal failure for this call.
func (l *Limiters) TryAcquire(provider string) bool {
	l.mu.RLock()
	limiter, ok := l.buckets[provider]
	l.mu.RUnlock()
	if !ok {
		return false
	}
	return limiter.Allow()
}

// Snapshot returns the configured capacity and refill rate per provider, for
// read-only introspection.
func (l *Limiters) Snapshot() map[string]BucketConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]BucketConfig, len(l.configs))
	for provider, cfg := range l.configs {
		out[provider] = cfg
	}
	return out
}
