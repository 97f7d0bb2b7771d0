// Package client implements the three upstream weather providers and the
// geocoding client. Every provider translates a parsed location into its
// provider-specific request, issues it subject to the per-provider token
// bucket, retry policy and circuit breaker, and parses the payload into the
// common ProviderResult shape. Upstream problems never escape a provider as
// errors; they come back as unsuccessful results.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-aggregation-service/internal/location"
	"github.com/kjstillabower/weather-aggregation-service/internal/models"
	"github.com/kjstillabower/weather-aggregation-service/internal/observability"
	"github.com/kjstillabower/weather-aggregation-service/internal/ratelimit"
	"github.com/kjstillabower/weather-aggregation-service/internal/retry"
)

var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited upstream")
	ErrClientRejected   = errors.New("client error")
	ErrThrottledLocally = errors.New("provider quota exhausted")
	ErrCircuitOpen      = errors.New("circuit breaker open")
)

// Provider is the capability every weather source implements. Fetch never
// returns an error: failures are absorbed into the result.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q location.Query) models.ProviderResult
}

// NewHTTPClient returns the shared outbound client. Per-call deadlines come
// from request contexts; the transport caps total and per-host connections
// and keeps idle connections alive for reuse across requests.
func NewHTTPClient(connectTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// BreakerConfig configures the per-provider circuit breaker.
type BreakerConfig struct {
	Enabled             bool
	ConsecutiveFailures uint32
	Interval            time.Duration
	Timeout             time.Duration
}

// NewBreaker builds a gobreaker instance for one provider, or nil when
// disabled.
func NewBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: cfg.Interval,
		Timeout:  cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
	})
}

// Options carries the shared dependencies a provider client needs.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Limiters   *ratelimit.Limiters
	Retry      *retry.Policy
	Breaker    *gobreaker.CircuitBreaker
	Logger     *zap.Logger
}

// core is the plumbing shared by all provider clients: rate-limiter gate,
// retry loop, breaker, request building, status classification and decoding.
type core struct {
	name       string
	limiterKey string
	baseURL    string
	timeout    time.Duration
	http       *http.Client
	limiters   *ratelimit.Limiters
	policy     *retry.Policy
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

func newCore(name, limiterKey string, opts Options) core {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(2 * time.Second)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return core{
		name:       name,
		limiterKey: limiterKey,
		baseURL:    opts.BaseURL,
		timeout:    opts.Timeout,
		http:       httpClient,
		limiters:   opts.Limiters,
		policy:     opts.Retry,
		breaker:    opts.Breaker,
		logger:     logger,
	}
}

// fetchJSON acquires a token, then runs the call under the retry policy and
// breaker, decoding the body into out. Returns the attempt count alongside
// the terminal error, if any. A rate-limiter denial is terminal immediately;
// the coordinator must not wait for the bucket within a request's lifetime.
func (c *core) fetchJSON(ctx context.Context, rawURL string, params url.Values, out interface{}) (int, error) {
	if !c.limiters.TryAcquire(c.limiterKey) {
		observability.ProviderRateLimitDeniedTotal.WithLabelValues(c.name).Inc()
		c.logger.Warn("provider call denied by token bucket", zap.String("provider", c.name))
		return 0, ErrThrottledLocally
	}

	attempt := 0
	attempts, err := c.policy.Do(ctx, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			observability.ProviderRetriesTotal.WithLabelValues(c.name).Inc()
		}
		if c.breaker == nil {
			return c.callOnce(ctx, rawURL, params, out)
		}
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.callOnce(ctx, rawURL, params, out)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return err
	}, Retryable)
	return attempts, err
}

// callOnce performs a single HTTP attempt with the provider's own timeout.
func (c *core) callOnce(ctx context.Context, rawURL string, params url.Values, out interface{}) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	base, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid provider URL: %w", err)
	}
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, base.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.ProviderCallsTotal.WithLabelValues(c.name, "error").Inc()
		observability.ProviderDuration.WithLabelValues(c.name, "error").Observe(duration)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("request timeout: %w", err)
		}
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := observability.StatusLabel(resp.StatusCode)
	observability.ProviderCallsTotal.WithLabelValues(c.name, status).Inc()
	observability.ProviderDuration.WithLabelValues(c.name, status).Observe(duration)

	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// classifyStatus maps an HTTP status to an error sentinel. 429 and 5xx are
// retryable; any other non-2xx is terminal for this call.
func classifyStatus(statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidAPIKey, statusCode)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", ErrLocationNotFound, statusCode)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, statusCode)
	case statusCode >= 500:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, statusCode)
	default:
		return fmt.Errorf("%w: HTTP %d", ErrClientRejected, statusCode)
	}
}

// Retryable reports whether an attempt failure is worth retrying:
// upstream 5xx, upstream 429, and connect/read timeouts or transport errors.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	if errors.Is(err, ErrInvalidAPIKey) || errors.Is(err, ErrLocationNotFound) ||
		errors.Is(err, ErrClientRejected) || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset")
}

// failure logs a provider failure and wraps it into an unsuccessful result.
func (c *core) failure(err error, attempts int, elapsed time.Duration) models.ProviderResult {
	c.logger.Warn("provider fetch failed",
		zap.String("provider", c.name),
		zap.Int("attempts", attempts),
		zap.Error(err))
	r := models.Failure(c.name, err.Error())
	r.Attempts = attempts
	r.ResponseTime = elapsed
	return r
}

func f64(v float64) *float64 { return &v }
