// Package service coordinates a weather request end to end: parse the
// location, consult the cache, fan out to the providers under an overall
// deadline, merge what came back, and populate the cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-aggregation-service/internal/aggregate"
	"github.com/kjstillabower/weather-aggregation-service/internal/cache"
	"github.com/kjstillabower/weather-aggregation-service/internal/client"
	"github.com/kjstillabower/weather-aggregation-service/internal/location"
	"github.com/kjstillabower/weather-aggregation-service/internal/models"
	"github.com/kjstillabower/weather-aggregation-service/internal/observability"
)

var (
	// ErrInvalidLocation means the raw location string matched neither the
	// city nor the coordinate grammar.
	ErrInvalidLocation = errors.New("invalid location format")
	// ErrAllProvidersFailed means every provider call finished and failed.
	ErrAllProvidersFailed = aggregate.ErrAllProvidersFailed
	// ErrRequestTimeout means the overall deadline expired before any
	// provider succeeded.
	ErrRequestTimeout = errors.New("request timeout")
)

// Service is the weather aggregation coordinator.
type Service struct {
	providers []client.Provider
	store     *cache.Cache
	deadline  time.Duration
	stampede  *stampedeTracker
	coalescer *requestCoalescer
	view      models.ConfigView
	logger    *zap.Logger
}

// New builds a Service. A coalesceTimeout of zero disables request
// coalescing; deadline bounds the provider fan-out per request.
func New(providers []client.Provider, store *cache.Cache, deadline, coalesceTimeout time.Duration, view models.ConfigView, logger *zap.Logger) *Service {
	var coalescer *requestCoalescer
	if coalesceTimeout > 0 {
		coalescer = newRequestCoalescer(coalesceTimeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		providers: providers,
		store:     store,
		deadline:  deadline,
		stampede:  newStampedeTracker(),
		coalescer: coalescer,
		view:      view,
		logger:    logger,
	}
}

// GetWeather resolves a raw location string into aggregated current weather.
// Cache hits are returned immediately with the Cached flag set; misses fan
// out to the providers, and only merged successes are written back.
func (s *Service) GetWeather(ctx context.Context, rawLocation string) (models.AggregatedWeather, error) {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx)

	q, err := location.Parse(rawLocation)
	if err != nil {
		return models.AggregatedWeather{}, fmt.Errorf("%w: %q", ErrInvalidLocation, rawLocation)
	}
	key := q.Key()
	observability.WeatherQueriesTotal.Inc()

	if cached, ok := s.store.Get(key); ok {
		cached.Cached = true
		logger.Debug("cache hit",
			zap.String("location", key),
			zap.Duration("duration", time.Since(start)))
		return cached, nil
	}

	concurrentMisses := s.stampede.missStarted(key)
	defer s.stampede.missResolved(key)
	if concurrentMisses > 1 {
		observability.CacheStampedeDetectedTotal.Inc()
	}
	logger.Debug("cache miss, fanning out", zap.String("location", key))

	var agg models.AggregatedWeather
	if s.coalescer != nil {
		agg, err = s.coalescer.GetOrDo(ctx, key, func() (models.AggregatedWeather, error) {
			return s.fetchAndMerge(ctx, q)
		})
	} else {
		agg, err = s.fetchAndMerge(ctx, q)
	}
	if err != nil {
		logger.Warn("aggregation failed",
			zap.String("location", key),
			zap.Error(err))
		return models.AggregatedWeather{}, err
	}

	s.store.Put(key, agg)
	logger.Debug("weather served",
		zap.String("location", key),
		zap.Strings("sources", agg.Sources),
		zap.Duration("duration", time.Since(start)))
	return agg, nil
}

// fetchAndMerge runs one provider fan-out under the overall deadline. Each
// provider gets its own goroutine; providers still pending when the deadline
// fires are recorded as failures and their in-flight calls abandoned.
func (s *Service) fetchAndMerge(ctx context.Context, q location.Query) (models.AggregatedWeather, error) {
	fanCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	type indexedResult struct {
		idx    int
		result models.ProviderResult
	}
	resultCh := make(chan indexedResult, len(s.providers))
	for i, p := range s.providers {
		go func(idx int, p client.Provider) {
			resultCh <- indexedResult{idx: idx, result: p.Fetch(fanCtx, q)}
		}(i, p)
	}

	results := make([]models.ProviderResult, len(s.providers))
	received := make([]bool, len(s.providers))
	pending := len(s.providers)
collect:
	for pending > 0 {
		select {
		case r := <-resultCh:
			results[r.idx] = r.result
			received[r.idx] = true
			pending--
		case <-fanCtx.Done():
			// Deadline fired; keep whatever already landed in the buffer.
			for {
				select {
				case r := <-resultCh:
					results[r.idx] = r.result
					received[r.idx] = true
				default:
					break collect
				}
			}
		}
	}

	deadlineExpired := false
	for i, p := range s.providers {
		if !received[i] {
			deadlineExpired = true
			results[i] = models.Failure(p.Name(), "deadline exceeded")
		}
	}

	agg, err := aggregate.Merge(results)
	if err != nil {
		if deadlineExpired {
			return models.AggregatedWeather{}, fmt.Errorf("%w after %s", ErrRequestTimeout, s.deadline)
		}
		return models.AggregatedWeather{}, err
	}
	if q.Kind == location.KindCoordinates {
		lat, lon := q.Lat, q.Lon
		agg.Location.Lat = &lat
		agg.Location.Lon = &lon
	}
	return agg, nil
}

// CacheStats reports cache counters and the most requested locations.
func (s *Service) CacheStats() models.CacheStats {
	return s.store.Stats()
}

// ClearCache drops every cached entry and returns how many were removed.
func (s *Service) ClearCache() int {
	cleared := s.store.Clear()
	s.logger.Info("cache cleared", zap.Int("entries", cleared))
	return cleared
}

// Config returns the sanitized runtime configuration snapshot.
func (s *Service) Config() models.ConfigView {
	return s.view
}
