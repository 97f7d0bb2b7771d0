package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-aggregation-service/internal/cache"
	"github.com/kjstillabower/weather-aggregation-service/internal/client"
	"github.com/kjstillabower/weather-aggregation-service/internal/config"
	httphandler "github.com/kjstillabower/weather-aggregation-service/internal/http"
	"github.com/kjstillabower/weather-aggregation-service/internal/models"
	"github.com/kjstillabower/weather-aggregation-service/internal/observability"
	"github.com/kjstillabower/weather-aggregation-service/internal/ratelimit"
	"github.com/kjstillabower/weather-aggregation-service/internal/retry"
	"github.com/kjstillabower/weather-aggregation-service/internal/service"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	httpClient := client.NewHTTPClient(cfg.ConnectTimeout)

	buckets := make(map[string]ratelimit.BucketConfig, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		buckets[name] = ratelimit.BucketConfig{
			Capacity:        pc.RateCapacity,
			RefillPerSecond: pc.RefillPerSecond,
		}
	}
	limiters := ratelimit.New(buckets)
	policy := retry.NewPolicy(cfg.RetryMaxAttempts, cfg.RetryBaseDelay, cfg.RetryMaxDelay)

	breakerCfg := client.BreakerConfig{
		Enabled:             cfg.BreakerEnabled,
		ConsecutiveFailures: cfg.BreakerConsecutiveFailures,
		Interval:            cfg.BreakerInterval,
		Timeout:             cfg.BreakerTimeout,
	}
	options := func(pc config.ProviderConfig) client.Options {
		return client.Options{
			BaseURL:    pc.BaseURL,
			APIKey:     pc.APIKey,
			Timeout:    pc.Timeout,
			HTTPClient: httpClient,
			Limiters:   limiters,
			Retry:      policy,
			Logger:     logger,
		}
	}

	owmCfg := cfg.Providers[models.ProviderOpenWeatherMap]
	geocodeOpts := options(owmCfg)
	geocodeOpts.BaseURL = owmCfg.GeocodingURL
	geocoder := client.NewGeocodeClient(geocodeOpts)

	var providers []client.Provider
	if pc := cfg.Providers[models.ProviderOpenWeatherMap]; pc.Enabled {
		opts := options(pc)
		opts.Breaker = client.NewBreaker(models.ProviderOpenWeatherMap, breakerCfg)
		providers = append(providers, client.NewOpenWeatherMap(opts))
	}
	if pc := cfg.Providers[models.ProviderWeatherAPI]; pc.Enabled {
		opts := options(pc)
		opts.Breaker = client.NewBreaker(models.ProviderWeatherAPI, breakerCfg)
		providers = append(providers, client.NewWeatherAPI(opts))
	}
	if pc := cfg.Providers[models.ProviderOpenMeteo]; pc.Enabled {
		opts := options(pc)
		opts.Breaker = client.NewBreaker(models.ProviderOpenMeteo, breakerCfg)
		providers = append(providers, client.NewOpenMeteo(opts, geocoder))
	}
	for _, p := range providers {
		logger.Info("provider enabled", zap.String("provider", p.Name()))
	}

	store := cache.New(cfg.CacheTTL, cfg.CacheMaxSize)
	weatherService := service.New(providers, store, cfg.RequestDeadline, cfg.CoalesceTimeout, cfg.View(), logger)

	if len(cfg.WarmLocations) > 0 {
		warmer := cache.NewWarmer(weatherService, logger)
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := warmer.Warm(warmCtx, cfg.WarmLocations); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
		if cfg.WarmInterval > 0 {
			go func() {
				if err := warmer.WarmPeriodic(context.Background(), cfg.WarmLocations, cfg.WarmInterval); err != nil && err != context.Canceled {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		}
	}

	var ingress *rate.Limiter
	if cfg.IngressRPS > 0 {
		ingress = rate.NewLimiter(rate.Limit(cfg.IngressRPS), cfg.IngressBurst)
	}
	auth := httphandler.NewAuthenticator(cfg.TokenRoles())
	handler := httphandler.NewHandler(weatherService, logger)
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		Logger:         logger,
		IngressLimiter: ingress,
		RequestTimeout: cfg.RequestDeadline + 2*time.Second,
		Auth:           auth,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, 100*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed",
			zap.Error(err),
			zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
