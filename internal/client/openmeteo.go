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

// OpenMeteo fetches current conditions from the Open-Meteo /v1/forecast
// endpoint. The API only takes coordinates, so city queries go through the
// geocoder first; a geocoding failure fails the whole fetch.
type OpenMeteo struct {
	core
	geocoder location.Geocoder
}

func NewOpenMeteo(opts Options, geocoder location.Geocoder) *OpenMeteo {
	return &OpenMeteo{
		core:     newCore(models.ProviderOpenMeteo, models.ProviderOpenMeteo, opts),
		geocoder: geocoder,
	}
}

func (p *OpenMeteo) Name() string { return models.ProviderOpenMeteo }

type openMeteoResponse struct {
	CurrentWeather struct {
		Temperature   *float64 `json:"temperature"`
		WindSpeed     *float64 `json:"windspeed"`
		WindDirection *float64 `json:"winddirection"`
		WeatherCode   int      `json:"weathercode"`
	} `json:"current_weather"`
}

func (p *OpenMeteo) Fetch(ctx context.Context, q location.Query) models.ProviderResult {
	start := time.Now()

	lat, lon := q.Lat, q.Lon
	name, country := "", ""
	if q.Kind == location.KindCity {
		place, err := p.geocoder.Geocode(ctx, q.City)
		if err != nil {
			return p.failure(fmt.Errorf("geocoding failed: %w", err), 0, time.Since(start))
		}
		lat, lon = place.Lat, place.Lon
		name, country = place.Name, place.Country
	}

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", lat))
	params.Set("longitude", fmt.Sprintf("%.4f", lon))
	params.Set("current_weather", "true")

	var payload openMeteoResponse
	attempts, err := p.fetchJSON(ctx, p.baseURL, params, &payload)
	if err != nil {
		return p.failure(err, attempts, time.Since(start))
	}

	cur := payload.CurrentWeather
	condition := conditions.FromOpenMeteoCode(cur.WeatherCode)
	result := models.ProviderResult{
		Provider:         p.name,
		Success:          true,
		Name:             name,
		Country:          country,
		TemperatureC:     cur.Temperature,
		WindDirectionDeg: cur.WindDirection,
		Description:      condition.Description(),
		Condition:        condition,
		FetchedAt:        time.Now().UTC(),
		ResponseTime:     time.Since(start),
		Attempts:         attempts,
	}
	if cur.WindSpeed != nil {
		result.WindSpeedMS = f64(*cur.WindSpeed / 3.6)
	}
	return result
}
