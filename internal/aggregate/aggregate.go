// Package aggregate merges per-provider results into a single weather view.
package aggregate

import (
	"errors"
	"time"

	"github.com/kjstillabower/weather-aggregation-service/internal/conditions"
	"github.com/kjstillabower/weather-aggregation-service/internal/models"
)

// ErrAllProvidersFailed is returned by Merge when no provider succeeded.
var ErrAllProvidersFailed = errors.New("all providers failed")

// Priority orders providers for field selection. A field comes from the
// highest-priority provider that reported it; lower-priority providers only
// backfill fields the ones above them are missing.
var Priority = []string{
	models.ProviderOpenWeatherMap,
	models.ProviderWeatherAPI,
	models.ProviderOpenMeteo,
}

// Merge combines results into one AggregatedWeather. Each field is taken
// from the first provider in priority order that has it; the standardized
// condition follows the same rule over non-unknown conditions. Sources lists
// the successful providers in priority order.
func Merge(results []models.ProviderResult) (models.AggregatedWeather, error) {
	ordered := byPriority(results)
	if len(ordered) == 0 {
		return models.AggregatedWeather{}, ErrAllProvidersFailed
	}

	agg := models.AggregatedWeather{
		Condition: conditions.Unknown,
		Timestamp: time.Now().UTC(),
	}
	for _, r := range ordered {
		agg.Sources = append(agg.Sources, r.Provider)

		if agg.Location.Name == "" && r.Name != "" {
			agg.Location.Name = r.Name
			agg.Location.Country = r.Country
		}
		if agg.TemperatureC == nil {
			agg.TemperatureC = r.TemperatureC
		}
		if agg.HumidityPct == nil {
			agg.HumidityPct = r.HumidityPct
		}
		if agg.PressureHpa == nil {
			agg.PressureHpa = r.PressureHpa
		}
		if agg.VisibilityM == nil {
			agg.VisibilityM = r.VisibilityM
		}
		if agg.UVIndex == nil {
			agg.UVIndex = r.UVIndex
		}
		if agg.WindSpeedMS == nil {
			agg.WindSpeedMS = r.WindSpeedMS
		}
		if agg.WindDirectionDeg == nil {
			agg.WindDirectionDeg = r.WindDirectionDeg
		}
		if agg.Condition == conditions.Unknown && r.Condition != conditions.Unknown {
			agg.Condition = r.Condition
		}
		if agg.Description == "" && r.Description != "" {
			agg.Description = r.Description
		}
	}
	if agg.Condition != conditions.Unknown {
		agg.Description = agg.Condition.Description()
	}
	return agg, nil
}

// byPriority returns the successful results sorted into priority order.
func byPriority(results []models.ProviderResult) []models.ProviderResult {
	indexed := make(map[string]models.ProviderResult, len(results))
	for _, r := range results {
		if r.Success {
			indexed[r.Provider] = r
		}
	}
	ordered := make([]models.ProviderResult, 0, len(indexed))
	for _, provider := range Priority {
		if r, ok := indexed[provider]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered
}
