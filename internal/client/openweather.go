package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/kjstillabower/weather-aggregation-service/internal/conditions"
	"github.com/kjstillabower/weather-aggregation-service/internal/location"
	"github.com/kjstillabower/weather-aggregation-service/internal/models"
)

// OpenWeatherMap fetches current conditions from the OpenWeatherMap
// /data/2.5/weather endpoint. It accepts both city names and coordinates.
type OpenWeatherMap struct {
	core
	apiKey string
}

func NewOpenWeatherMap(opts Options) *OpenWeatherMap {
	return &OpenWeatherMap{
		core:   newCore(models.ProviderOpenWeatherMap, models.ProviderOpenWeatherMap, opts),
		apiKey: opts.APIKey,
	}
}

func (p *OpenWeatherMap) Name() string { return models.ProviderOpenWeatherMap }

type openWeatherResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
	Visibility *float64 `json:"visibility"`
	Wind       struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"weather"`
}

func (p *OpenWeatherMap) Fetch(ctx context.Context, q location.Query) models.ProviderResult {
	start := time.Now()

	params := url.Values{}
	params.Set("appid", p.apiKey)
	params.Set("units", "metric")
	switch q.Kind {
	case location.KindCoordinates:
		params.Set("lat", fmt.Sprintf("%.4f", q.Lat))
		params.Set("lon", fmt.Sprintf("%.4f", q.Lon))
	default:
		params.Set("q", q.City)
	}

	var payload openWeatherResponse
	attempts, err := p.fetchJSON(ctx, p.baseURL, params, &payload)
	if err != nil {
		return p.failure(err, attempts, time.Since(start))
	}

	result := models.ProviderResult{
		Provider:         p.name,
		Success:          true,
		Name:             payload.Name,
		Country:          payload.Sys.Country,
		TemperatureC:     payload.Main.Temp,
		HumidityPct:      payload.Main.Humidity,
		PressureHpa:      payload.Main.Pressure,
		VisibilityM:      payload.Visibility,
		WindSpeedMS:      payload.Wind.Speed,
		WindDirectionDeg: payload.Wind.Deg,
		Condition:        conditions.Unknown,
		FetchedAt:        time.Now().UTC(),
		ResponseTime:     time.Since(start),
		Attempts:         attempts,
	}
	if len(payload.Weather) > 0 {
		result.Description = payload.Weather[0].Description
		result.Condition = conditions.FromOpenWeatherCode(payload.Weather[0].ID)
	}
	return result
}
