// Package http exposes the aggregation service over REST: the weather query
// endpoint plus cache, config, health and metrics surfaces.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-aggregation-service/internal/models"
	"github.com/kjstillabower/weather-aggregation-service/internal/observability"
	"github.com/kjstillabower/weather-aggregation-service/internal/service"
)

// WeatherService is the slice of the coordinator the handlers need.
type WeatherService interface {
	GetWeather(ctx context.Context, location string) (models.AggregatedWeather, error)
	CacheStats() models.CacheStats
	ClearCache() int
	Config() models.ConfigView
}

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	weather WeatherService
	logger  *zap.Logger
}

func NewHandler(weather WeatherService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{weather: weather, logger: logger}
}

// RouterConfig wires middleware around the handler routes.
type RouterConfig struct {
	Logger         *zap.Logger
	IngressLimiter *rate.Limiter
	RequestTimeout time.Duration
	Auth           *Authenticator
}

// NewRouter builds the full route table. Read access to /weather needs the
// user role; the cache and config surfaces need admin. /health and /metrics
// stay open for probes and scrapers.
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	auth := cfg.Auth

	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(logger))
	r.Use(MetricsMiddleware)

	r.Handle("/health", http.HandlerFunc(h.GetHealth)).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	weather := r.PathPrefix("/weather").Subrouter()
	weather.Use(RateLimitMiddleware(cfg.IngressLimiter))
	if cfg.RequestTimeout > 0 {
		weather.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	weather.Use(auth.Require(RoleUser))
	weather.Handle("", http.HandlerFunc(h.GetWeather)).Methods(http.MethodGet)

	admin := r.PathPrefix("/").Subrouter()
	admin.Use(auth.Require(RoleAdmin))
	admin.Handle("/cache/stats", http.HandlerFunc(h.GetCacheStats)).Methods(http.MethodGet)
	admin.Handle("/cache", http.HandlerFunc(h.ClearCache)).Methods(http.MethodDelete)
	admin.Handle("/config", http.HandlerFunc(h.GetConfig)).Methods(http.MethodGet)

	return r
}

// GetWeather handles GET /weather?location=...
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	locationParam := strings.TrimSpace(r.URL.Query().Get("location"))
	if locationParam == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", "location query parameter is required")
		return
	}

	result, err := h.weather.GetWeather(r.Context(), locationParam)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetCacheStats handles GET /cache/stats.
func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.weather.CacheStats())
}

// ClearCache handles DELETE /cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	cleared := h.weather.ClearCache()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cleared": cleared,
		"message": "cache cleared",
	})
}

// GetConfig handles GET /config. The view is pre-sanitized; API keys never
// appear in it.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.weather.Config())
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.weather.CacheStats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "weather-aggregation-service",
		"cacheSize": stats.CurrentSize,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope with code, message and the
// request's correlation id.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": CorrelationID(r.Context()),
		},
	})
}

// writeServiceError maps coordinator errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context())
	switch {
	case errors.Is(err, service.ErrInvalidLocation):
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", "Location must be a city name or \"lat,lon\" coordinates")
	case errors.Is(err, service.ErrRequestTimeout), errors.Is(err, context.DeadlineExceeded):
		logger.Warn("weather request timed out", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "REQUEST_TIMEOUT", "Providers did not respond in time")
	case errors.Is(err, service.ErrAllProvidersFailed):
		logger.Warn("all providers failed", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "ALL_PROVIDERS_FAILED", "No weather provider returned data")
	default:
		logger.Error("weather request failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Internal server error")
	}
}
