package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kjstillabower/weather-aggregation-service/internal/models"
)

type fakeFetcher struct {
	mu      sync.Mutex
	fetched []string
	fail    map[string]bool
}

func (f *fakeFetcher) GetWeather(ctx context.Context, location string) (models.AggregatedWeather, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, location)
	if f.fail[location] {
		return models.AggregatedWeather{}, errors.New("all providers failed")
	}
	return entryFor(location), nil
}

func TestWarmer_Warm(t *testing.T) {
	f := &fakeFetcher{}
	w := NewWarmer(f, nil)

	if err := w.Warm(context.Background(), []string{"singapore", "tokyo", "paris"}); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.fetched) != 3 {
		t.Errorf("fetched %d locations, want 3", len(f.fetched))
	}
}

func TestWarmer_Warm_CollectsFailures(t *testing.T) {
	f := &fakeFetcher{fail: map[string]bool{"atlantis": true}}
	w := NewWarmer(f, nil)

	err := w.Warm(context.Background(), []string{"singapore", "atlantis"})
	if err == nil {
		t.Fatal("Warm() error = nil, want aggregated failure")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.fetched) != 2 {
		t.Errorf("fetched %d locations, want both despite failure", len(f.fetched))
	}
}
