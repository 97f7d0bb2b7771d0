package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kjstillabower/weather-aggregation-service/internal/location"
	"github.com/kjstillabower/weather-aggregation-service/internal/models"
)

// GeocodeClient resolves city names to coordinates through the OpenWeatherMap
// geocoding API. Calls draw from the OpenWeatherMap token bucket since they
// count against the same upstream quota.
type GeocodeClient struct {
	core
	apiKey string
}

func NewGeocodeClient(opts Options) *GeocodeClient {
	return &GeocodeClient{
		core:   newCore("geocoding", models.ProviderOpenWeatherMap, opts),
		apiKey: opts.APIKey,
	}
}

type geocodeEntry struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Geocode returns the best match for a city name, or location.ErrNotFound
// when the API has no entry for it.
func (g *GeocodeClient) Geocode(ctx context.Context, city string) (location.Place, error) {
	params := url.Values{}
	params.Set("q", city)
	params.Set("limit", "1")
	params.Set("appid", g.apiKey)

	var entries []geocodeEntry
	if _, err := g.fetchJSON(ctx, g.baseURL, params, &entries); err != nil {
		return location.Place{}, fmt.Errorf("geocode %q: %w", city, err)
	}
	if len(entries) == 0 {
		return location.Place{}, fmt.Errorf("geocode %q: %w", city, location.ErrNotFound)
	}
	best := entries[0]
	return location.Place{
		Name:    best.Name,
		Country: best.Country,
		Lat:     best.Lat,
		Lon:     best.Lon,
	}, nil
}
