package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/weather-aggregation-service/internal/conditions"
	"github.com/kjstillabower/weather-aggregation-service/internal/location"
	"github.com/kjstillabower/weather-aggregation-service/internal/models"
	"github.com/kjstillabower/weather-aggregation-service/internal/ratelimit"
	"github.com/kjstillabower/weather-aggregation-service/internal/retry"
)

func testLimiters() *ratelimit.Limiters {
	return ratelimit.New(map[string]ratelimit.BucketConfig{
		models.ProviderOpenWeatherMap: {Capacity: 100, RefillPerSecond: 10},
		models.ProviderWeatherAPI:     {Capacity: 100, RefillPerSecond: 10},
		models.ProviderOpenMeteo:      {Capacity: 100, RefillPerSecond: 10},
	})
}

func testOptions(baseURL string) Options {
	return Options{
		BaseURL:  baseURL,
		APIKey:   "test-key",
		Timeout:  2 * time.Second,
		Limiters: testLimiters(),
		Retry:    retry.NewPolicyWithSeed(4, time.Millisecond, 4*time.Millisecond, 1),
	}
}

func TestOpenWeatherMapFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Singapore" {
			t.Errorf("expected q=Singapore, got %q", got)
		}
		if got := r.URL.Query().Get("units"); got != "metric" {
			t.Errorf("expected units=metric, got %q", got)
		}
		fmt.Fprint(w, `{
			"name": "Singapore",
			"sys": {"country": "SG"},
			"main": {"temp": 30.5, "humidity": 78, "pressure": 1009},
			"visibility": 10000,
			"wind": {"speed": 3.6, "deg": 140},
			"weather": [{"id": 802, "description": "scattered clouds"}]
		}`)
	}))
	defer server.Close()

	p := NewOpenWeatherMap(testOptions(server.URL))
	result := p.Fetch(context.Background(), location.Query{Kind: location.KindCity, City: "Singapore"})

	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Reason)
	}
	if result.Provider != models.ProviderOpenWeatherMap {
		t.Errorf("expected provider %q, got %q", models.ProviderOpenWeatherMap, result.Provider)
	}
	if result.Name != "Singapore" || result.Country != "SG" {
		t.Errorf("unexpected place: %s, %s", result.Name, result.Country)
	}
	if result.TemperatureC == nil || *result.TemperatureC != 30.5 {
		t.Errorf("unexpected temperature: %v", result.TemperatureC)
	}
	if result.VisibilityM == nil || *result.VisibilityM != 10000 {
		t.Errorf("unexpected visibility: %v", result.VisibilityM)
	}
	if result.Condition != conditions.PartlyCloudy {
		t.Errorf("expected condition %q, got %q", conditions.PartlyCloudy, result.Condition)
	}
	if result.Description != "scattered clouds" {
		t.Errorf("unexpected description: %q", result.Description)
	}
	if result.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", result.Attempts)
	}
}

func TestOpenWeatherMapFetchCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("lat"); got != "1.2900" {
			t.Errorf("expected lat=1.2900, got %q", got)
		}
		if got := r.URL.Query().Get("lon"); got != "103.8500" {
			t.Errorf("expected lon=103.8500, got %q", got)
		}
		fmt.Fprint(w, `{"name": "Singapore", "sys": {"country": "SG"}, "main": {"temp": 29}, "weather": []}`)
	}))
	defer server.Close()

	p := NewOpenWeatherMap(testOptions(server.URL))
	result := p.Fetch(context.Background(), location.Query{Kind: location.KindCoordinates, Lat: 1.29, Lon: 103.85})

	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Reason)
	}
	if result.Condition != conditions.Unknown {
		t.Errorf("expected unknown condition for empty weather list, got %q", result.Condition)
	}
	if result.HumidityPct != nil {
		t.Errorf("expected nil humidity when absent, got %v", *result.HumidityPct)
	}
}

func TestWeatherAPIFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("expected key=test-key, got %q", got)
		}
		fmt.Fprint(w, `{
			"location": {"name": "London", "country": "United Kingdom"},
			"current": {
				"temp_c": 14.0,
				"humidity": 82,
				"pressure_mb": 1012,
				"vis_km": 9.5,
				"uv": 3,
				"wind_kph": 18.0,
				"wind_degree": 250,
				"condition": {"text": "Light rain", "code": 1183}
			}
		}`)
	}))
	defer server.Close()

	p := NewWeatherAPI(testOptions(server.URL))
	result := p.Fetch(context.Background(), location.Query{Kind: location.KindCity, City: "London"})

	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Reason)
	}
	if result.VisibilityM == nil || *result.VisibilityM != 9500 {
		t.Errorf("expected visibility 9500m, got %v", result.VisibilityM)
	}
	if result.WindSpeedMS == nil || *result.WindSpeedMS != 5 {
		t.Errorf("expected wind 5 m/s, got %v", result.WindSpeedMS)
	}
	if result.UVIndex == nil || *result.UVIndex != 3 {
		t.Errorf("expected uv 3, got %v", result.UVIndex)
	}
	if result.Condition != conditions.LightRain {
		t.Errorf("expected condition %q, got %q", conditions.LightRain, result.Condition)
	}
}

func TestOpenMeteoFetchCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("latitude"); got != "48.8566" {
			t.Errorf("expected latitude=48.8566, got %q", got)
		}
		if got := r.URL.Query().Get("current_weather"); got != "true" {
			t.Errorf("expected current_weather=true, got %q", got)
		}
		fmt.Fprint(w, `{"current_weather": {"temperature": 18.3, "windspeed": 7.2, "winddirection": 310, "weathercode": 61}}`)
	}))
	defer server.Close()

	p := NewOpenMeteo(testOptions(server.URL), nil)
	result := p.Fetch(context.Background(), location.Query{Kind: location.KindCoordinates, Lat: 48.8566, Lon: 2.3522})

	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Reason)
	}
	if result.WindSpeedMS == nil || *result.WindSpeedMS != 2 {
		t.Errorf("expected wind 2 m/s, got %v", result.WindSpeedMS)
	}
	if result.Condition != conditions.LightRain {
		t.Errorf("expected condition %q, got %q", conditions.LightRain, result.Condition)
	}
	if result.Description != "Light Rain" {
		t.Errorf("unexpected description: %q", result.Description)
	}
}

type staticGeocoder struct {
	place location.Place
	err   error
}

func (g staticGeocoder) Geocode(ctx context.Context, city string) (location.Place, error) {
	return g.place, g.err
}

func TestOpenMeteoFetchCityGeocodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("latitude"); got != "35.6762" {
			t.Errorf("expected geocoded latitude, got %q", got)
		}
		fmt.Fprint(w, `{"current_weather": {"temperature": 22, "windspeed": 0, "winddirection": 0, "weathercode": 0}}`)
	}))
	defer server.Close()

	geocoder := staticGeocoder{place: location.Place{Name: "Tokyo", Country: "JP", Lat: 35.6762, Lon: 139.6503}}
	p := NewOpenMeteo(testOptions(server.URL), geocoder)
	result := p.Fetch(context.Background(), location.Query{Kind: location.KindCity, City: "Tokyo"})

	if !result.Success {
		t.Fatalf("expected success, got failure: %s", result.Reason)
	}
	if result.Name != "Tokyo" || result.Country != "JP" {
		t.Errorf("expected geocoded place, got %s, %s", result.Name, result.Country)
	}
	if result.Condition != conditions.Clear {
		t.Errorf("expected clear, got %q", result.Condition)
	}
}

func TestOpenMeteoGeocodingFailureFailsFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("forecast endpoint should not be called when geocoding fails")
	}))
	defer server.Close()

	geocoder := staticGeocoder{err: location.ErrNotFound}
	p := NewOpenMeteo(testOptions(server.URL), geocoder)
	result := p.Fetch(context.Background(), location.Query{Kind: location.KindCity, City: "Nowhereville"})

	if result.Success {
		t.Fatal("expected failure when geocoding fails")
	}
	if result.Reason == "" {
		t.Error("expected a failure reason")
	}
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"name": "Oslo", "sys": {"country": "NO"}, "main": {"temp": 5}, "weather": []}`)
	}))
	defer server.Close()

	p := NewOpenWeatherMap(testOptions(server.URL))
	result := p.Fetch(context.Background(), location.Query{Kind: location.KindCity, City: "Oslo"})

	if !result.Success {
		t.Fatalf("expected success after retries, got failure: %s", result.Reason)
	}
	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 upstream calls, got %d", got)
	}
}

func TestFetchDoesNotRetryAuthFailures(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := NewOpenWeatherMap(testOptions(server.URL))
	result := p.Fetch(context.Background(), location.Query{Kind: location.KindCity, City: "Oslo"})

	if result.Success {
		t.Fatal("expected failure on 401")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 upstream call, got %d", got)
	}
	if result.Attempts != 1 {
		t.Errorf("expected 1 attempt recorded, got %d", result.Attempts)
	}
}

func TestFetchExhaustsRetriesOnPersistent500(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewOpenWeatherMap(testOptions(server.URL))
	result := p.Fetch(context.Background(), location.Query{Kind: location.KindCity, City: "Oslo"})

	if result.Success {
		t.Fatal("expected failure after retry exhaustion")
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("expected 4 upstream calls, got %d", got)
	}
}

func TestFetchDeniedByTokenBucket(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	opts := testOptions(server.URL)
	opts.Limiters = ratelimit.New(map[string]ratelimit.BucketConfig{
		models.ProviderOpenWeatherMap: {Capacity: 1, RefillPerSecond: 0.001},
	})
	p := NewOpenWeatherMap(opts)

	first := p.Fetch(context.Background(), location.Query{Kind: location.KindCity, City: "Oslo"})
	if !first.Success {
		t.Fatalf("first call should have a token: %s", first.Reason)
	}

	second := p.Fetch(context.Background(), location.Query{Kind: location.KindCity, City: "Oslo"})
	if second.Success {
		t.Fatal("expected denial when bucket is empty")
	}
	if second.Attempts != 0 {
		t.Errorf("denial must not consume attempts, got %d", second.Attempts)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("denied call must not reach upstream, got %d calls", got)
	}
}

func TestGeocodeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "1" {
			t.Errorf("expected limit=1, got %q", got)
		}
		fmt.Fprint(w, `[{"name": "Paris", "country": "FR", "lat": 48.8566, "lon": 2.3522}]`)
	}))
	defer server.Close()

	g := NewGeocodeClient(testOptions(server.URL))
	place, err := g.Geocode(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if place.Name != "Paris" || place.Lat != 48.8566 {
		t.Errorf("unexpected place: %+v", place)
	}
}

func TestGeocodeNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	g := NewGeocodeClient(testOptions(server.URL))
	_, err := g.Geocode(context.Background(), "Nowhereville")
	if !errors.Is(err, location.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{200, nil},
		{204, nil},
		{401, ErrInvalidAPIKey},
		{403, ErrInvalidAPIKey},
		{404, ErrLocationNotFound},
		{429, ErrRateLimited},
		{400, ErrClientRejected},
		{500, ErrUpstreamFailure},
		{503, ErrUpstreamFailure},
	}
	for _, tt := range tests {
		err := classifyStatus(tt.status)
		if tt.want == nil {
			if err != nil {
				t.Errorf("status %d: expected nil, got %v", tt.status, err)
			}
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"upstream 500", classifyStatus(500), true},
		{"upstream 429", classifyStatus(429), true},
		{"auth", classifyStatus(401), false},
		{"not found", classifyStatus(404), false},
		{"bad request", classifyStatus(400), false},
		{"deadline", fmt.Errorf("request timeout: %w", context.DeadlineExceeded), true},
		{"circuit open", fmt.Errorf("%w: open", ErrCircuitOpen), false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"misc", errors.New("something else"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
