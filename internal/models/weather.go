package models

import (
	"time"

	"github.com/kjstillabower/weather-aggregation-service/internal/conditions"
)

// Provider identifiers, in aggregation priority order.
const (
	ProviderOpenWeatherMap = "openweathermap"
	ProviderWeatherAPI     = "weatherapi"
	ProviderOpenMeteo      = "openmeteo"
)

// ProviderResult is one provider's normalized answer for a single request.
// Readings a provider does not supply stay nil so another provider can backfill
// them during aggregation. Immutable once produced.
type ProviderResult struct {
	Provider string `json:"provider"`
	Success  bool   `json:"success"`

	Name    string `json:"name,omitempty"`
	Country string `json:"country,omitempty"`

	TemperatureC     *float64 `json:"temperatureC,omitempty"`
	HumidityPct      *float64 `json:"humidityPct,omitempty"`
	PressureHpa      *float64 `json:"pressureHpa,omitempty"`
	VisibilityM      *float64 `json:"visibilityM,omitempty"`
	UVIndex          *float64 `json:"uvIndex,omitempty"`
	WindSpeedMS      *float64 `json:"windSpeedMs,omitempty"`
	WindDirectionDeg *float64 `json:"windDirectionDeg,omitempty"`

	Description string               `json:"description,omitempty"`
	Condition   conditions.Condition `json:"condition,omitempty"`

	FetchedAt    time.Time     `json:"fetchedAt"`
	ResponseTime time.Duration `json:"-"`
	Attempts     int           `json:"attempts,omitempty"`

	// Reason holds the failure cause when Success is false.
	Reason string `json:"reason,omitempty"`
}

// Failure builds an unsuccessful result for the given provider.
func Failure(provider, reason string) ProviderResult {
	return ProviderResult{
		Provider:  provider,
		Success:   false,
		Reason:    reason,
		FetchedAt: time.Now().UTC(),
	}
}

// ResolvedLocation is the location block of an aggregated response.
type ResolvedLocation struct {
	Name    string   `json:"name"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// AggregatedWeather is the merged view over all contributing providers.
// Built fresh per aggregation; served-from-cache copies carry Cached=true.
type AggregatedWeather struct {
	Location ResolvedLocation `json:"location"`

	TemperatureC     *float64 `json:"temperatureC,omitempty"`
	HumidityPct      *float64 `json:"humidityPct,omitempty"`
	PressureHpa      *float64 `json:"pressureHpa,omitempty"`
	VisibilityM      *float64 `json:"visibilityM,omitempty"`
	UVIndex          *float64 `json:"uvIndex,omitempty"`
	WindSpeedMS      *float64 `json:"windSpeedMs,omitempty"`
	WindDirectionDeg *float64 `json:"windDirectionDeg,omitempty"`

	Condition   conditions.Condition `json:"condition"`
	Description string               `json:"description"`

	Sources   []string  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
	Cached    bool      `json:"cached"`
}

// PopularKey is one entry of the cache's most-requested report.
type PopularKey struct {
	Key   string `json:"key"`
	Count uint64 `json:"count"`
}

// CacheStats is the read-only cache statistics view.
type CacheStats struct {
	Hits          uint64       `json:"hits"`
	Misses        uint64       `json:"misses"`
	TotalRequests uint64       `json:"totalRequests"`
	HitRatio      float64      `json:"hitRatio"`
	CurrentSize   int          `json:"currentSize"`
	MaxSize       int          `json:"maxSize"`
	TTLSeconds    int          `json:"ttlSeconds"`
	Evictions     uint64       `json:"evictions"`
	PopularKeys   []PopularKey `json:"popularKeys"`
}

// ProviderConfigView is the read-only per-provider configuration snapshot.
type ProviderConfigView struct {
	Enabled         bool    `json:"enabled"`
	BaseURL         string  `json:"baseUrl"`
	TimeoutSeconds  float64 `json:"timeoutSeconds"`
	RateCapacity    int     `json:"rateCapacity"`
	RefillPerSecond float64 `json:"refillPerSecond"`
}

// ConfigView is the read-only configuration snapshot exposed for introspection.
type ConfigView struct {
	Providers              map[string]ProviderConfigView `json:"providers"`
	RetryMaxAttempts       int                           `json:"retryMaxAttempts"`
	RetryBaseDelaySeconds  float64                       `json:"retryBaseDelaySeconds"`
	RetryMaxDelaySeconds   float64                       `json:"retryMaxDelaySeconds"`
	CacheTTLSeconds        int                           `json:"cacheTtlSeconds"`
	CacheMaxSize           int                           `json:"cacheMaxSize"`
	RequestDeadlineSeconds float64                       `json:"requestDeadlineSeconds"`
}
