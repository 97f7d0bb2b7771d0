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

// WeatherAPI fetches current conditions from the WeatherAPI.com
// /v1/current.json endpoint. It accepts both city names and coordinates.
type WeatherAPI struct {
	core
	apiKey string
}

func NewWeatherAPI(opts Options) *WeatherAPI {
	return &WeatherAPI{
		core:   newCore(models.ProviderWeatherAPI, models.ProviderWeatherAPI, opts),
		apiKey: opts.APIKey,
	}
}

func (p *WeatherAPI) Name() string { return models.ProviderWeatherAPI }

type weatherAPIResponse struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		TempC      *float64 `json:"temp_c"`
		Humidity   *float64 `json:"humidity"`
		PressureMb *float64 `json:"pressure_mb"`
		VisKm      *float64 `json:"vis_km"`
		UV         *float64 `json:"uv"`
		WindKph    *float64 `json:"wind_kph"`
		WindDegree *float64 `json:"wind_degree"`
		Condition  struct {
			Text string `json:"text"`
			Code int    `json:"code"`
		} `json:"condition"`
	} `json:"current"`
}

func (p *WeatherAPI) Fetch(ctx context.Context, q location.Query) models.ProviderResult {
	start := time.Now()

	params := url.Values{}
	params.Set("key", p.apiKey)
	switch q.Kind {
	case location.KindCoordinates:
		params.Set("q", fmt.Sprintf("%.4f,%.4f", q.Lat, q.Lon))
	default:
		params.Set("q", q.City)
	}

	var payload weatherAPIResponse
	attempts, err := p.fetchJSON(ctx, p.baseURL, params, &payload)
	if err != nil {
		return p.failure(err, attempts, time.Since(start))
	}

	cur := payload.Current
	result := models.ProviderResult{
		Provider:         p.name,
		Success:          true,
		Name:             payload.Location.Name,
		Country:          payload.Location.Country,
		TemperatureC:     cur.TempC,
		HumidityPct:      cur.Humidity,
		PressureHpa:      cur.PressureMb,
		UVIndex:          cur.UV,
		WindDirectionDeg: cur.WindDegree,
		Description:      cur.Condition.Text,
		Condition:        conditions.FromWeatherAPICode(cur.Condition.Code),
		FetchedAt:        time.Now().UTC(),
		ResponseTime:     time.Since(start),
		Attempts:         attempts,
	}
	if cur.VisKm != nil {
		result.VisibilityM = f64(*cur.VisKm * 1000)
	}
	if cur.WindKph != nil {
		result.WindSpeedMS = f64(*cur.WindKph / 3.6)
	}
	return result
}
