// Package config loads service configuration from config/{ENV_NAME}.yaml
// with environment overrides. API keys and auth tokens come from the
// environment only; a .env file is honored when present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weather-aggregation-service/internal/models"
)

// ProviderConfig holds one upstream provider's settings.
type ProviderConfig struct {
	Enabled         bool
	BaseURL         string
	GeocodingURL    string
	APIKey          string
	Timeout         time.Duration
	RateCapacity    int
	RefillPerSecond float64
}

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	Providers map[string]ProviderConfig

	RequestDeadline time.Duration
	ConnectTimeout  time.Duration

	CacheTTL     time.Duration
	CacheMaxSize int

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	BreakerEnabled             bool
	BreakerConsecutiveFailures uint32
	BreakerInterval            time.Duration
	BreakerTimeout             time.Duration

	IngressRPS   int
	IngressBurst int

	CoalesceTimeout time.Duration
	ShutdownTimeout time.Duration

	WarmLocations []string
	WarmInterval  time.Duration

	UserTokens  []string
	AdminTokens []string
}

type providerFile struct {
	Enabled         *bool   `yaml:"enabled"`
	BaseURL         string  `yaml:"base_url"`
	GeocodingURL    string  `yaml:"geocoding_url"`
	Timeout         string  `yaml:"timeout"`
	RateCapacity    int     `yaml:"rate_capacity"`
	RefillPerSecond float64 `yaml:"refill_per_second"`
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Providers map[string]providerFile `yaml:"providers"`

	Request struct {
		Deadline       string `yaml:"deadline"`
		ConnectTimeout string `yaml:"connect_timeout"`
	} `yaml:"request"`

	Cache struct {
		TTL     string `yaml:"ttl"`
		MaxSize int    `yaml:"max_size"`
	} `yaml:"cache"`

	Retry struct {
		MaxAttempts int    `yaml:"max_attempts"`
		BaseDelay   string `yaml:"base_delay"`
		MaxDelay    string `yaml:"max_delay"`
	} `yaml:"retry"`

	Breaker struct {
		Enabled             *bool  `yaml:"enabled"`
		ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
		Interval            string `yaml:"interval"`
		Timeout             string `yaml:"timeout"`
	} `yaml:"breaker"`

	Ingress struct {
		RPS   int `yaml:"rps"`
		Burst int `yaml:"burst"`
	} `yaml:"ingress"`

	Coalesce struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"coalesce"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Warming struct {
		Locations []string `yaml:"locations"`
		Interval  string   `yaml:"interval"`
	} `yaml:"warming"`
}

// Provider defaults used when the YAML omits a provider block.
var providerDefaults = map[string]ProviderConfig{
	models.ProviderOpenWeatherMap: {
		Enabled:         true,
		BaseURL:         "https://api.openweathermap.org/data/2.5/weather",
		GeocodingURL:    "https://api.openweathermap.org/geo/1.0/direct",
		Timeout:         7 * time.Second,
		RateCapacity:    60,
		RefillPerSecond: 1.0,
	},
	models.ProviderWeatherAPI: {
		Enabled:         true,
		BaseURL:         "https://api.weatherapi.com/v1/current.json",
		Timeout:         7 * time.Second,
		RateCapacity:    100,
		RefillPerSecond: 1.5,
	},
	models.ProviderOpenMeteo: {
		Enabled:         true,
		BaseURL:         "https://api.open-meteo.com/v1/forecast",
		Timeout:         7 * time.Second,
		RateCapacity:    1000,
		RefillPerSecond: 10.0,
	},
}

// apiKeyEnv maps providers to the env var holding their key. Open-Meteo
// needs none.
var apiKeyEnv = map[string]string{
	models.ProviderOpenWeatherMap: "OPENWEATHER_API_KEY",
	models.ProviderWeatherAPI:     "WEATHERAPI_API_KEY",
}

// Load reads config/{ENV_NAME}.yaml (default dev) relative to the working
// directory, after loading a .env file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return loadFromFile(filepath.Join(cwd, "config", env+".yaml"))
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{
		Providers: make(map[string]ProviderConfig, len(providerDefaults)),
	}

	cfg.ServerPort = os.Getenv("PORT")
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	for name, def := range providerDefaults {
		pc := def
		if pf, ok := fc.Providers[name]; ok {
			if pf.Enabled != nil {
				pc.Enabled = *pf.Enabled
			}
			if pf.BaseURL != "" {
				pc.BaseURL = pf.BaseURL
			}
			if pf.GeocodingURL != "" {
				pc.GeocodingURL = pf.GeocodingURL
			}
			pc.Timeout = parseDuration(pf.Timeout, def.Timeout)
			if pf.RateCapacity > 0 {
				pc.RateCapacity = pf.RateCapacity
			}
			if pf.RefillPerSecond > 0 {
				pc.RefillPerSecond = pf.RefillPerSecond
			}
		}
		if envVar, needsKey := apiKeyEnv[name]; needsKey {
			pc.APIKey = strings.TrimSpace(os.Getenv(envVar))
			if pc.Enabled && pc.APIKey == "" {
				pc.Enabled = false
			}
		}
		cfg.Providers[name] = pc
	}

	cfg.RequestDeadline = parseDuration(fc.Request.Deadline, 8*time.Second)
	cfg.ConnectTimeout = parseDuration(fc.Request.ConnectTimeout, 2*time.Second)

	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 10*time.Minute)
	cfg.CacheMaxSize = fc.Cache.MaxSize
	if cfg.CacheMaxSize <= 0 {
		cfg.CacheMaxSize = 1000
	}

	cfg.RetryMaxAttempts = fc.Retry.MaxAttempts
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 4
	}
	cfg.RetryBaseDelay = parseDuration(fc.Retry.BaseDelay, time.Second)
	cfg.RetryMaxDelay = parseDuration(fc.Retry.MaxDelay, 16*time.Second)

	cfg.BreakerEnabled = true
	if fc.Breaker.Enabled != nil {
		cfg.BreakerEnabled = *fc.Breaker.Enabled
	}
	cfg.BreakerConsecutiveFailures = fc.Breaker.ConsecutiveFailures
	if cfg.BreakerConsecutiveFailures == 0 {
		cfg.BreakerConsecutiveFailures = 10
	}
	cfg.BreakerInterval = parseDuration(fc.Breaker.Interval, time.Minute)
	cfg.BreakerTimeout = parseDuration(fc.Breaker.Timeout, 30*time.Second)

	cfg.IngressRPS = fc.Ingress.RPS
	if cfg.IngressRPS <= 0 {
		cfg.IngressRPS = 100
	}
	cfg.IngressBurst = fc.Ingress.Burst
	if cfg.IngressBurst <= 0 {
		cfg.IngressBurst = 250
	}

	cfg.CoalesceTimeout = parseDuration(fc.Coalesce.Timeout, 10*time.Second)
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	cfg.WarmLocations = fc.Warming.Locations
	cfg.WarmInterval = parseDuration(fc.Warming.Interval, 15*time.Minute)

	cfg.UserTokens = splitTokens(os.Getenv("AUTH_USER_TOKENS"))
	cfg.AdminTokens = splitTokens(os.Getenv("AUTH_ADMIN_TOKENS"))

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TokenRoles flattens the token lists into the token-to-role table the HTTP
// authenticator consumes. Empty when auth is disabled.
func (c *Config) TokenRoles() map[string]string {
	if len(c.UserTokens) == 0 && len(c.AdminTokens) == 0 {
		return nil
	}
	roles := make(map[string]string, len(c.UserTokens)+len(c.AdminTokens))
	for _, t := range c.UserTokens {
		roles[t] = "user"
	}
	for _, t := range c.AdminTokens {
		roles[t] = "admin"
	}
	return roles
}

// View builds the sanitized introspection snapshot. API keys and tokens are
// deliberately absent.
func (c *Config) View() models.ConfigView {
	providers := make(map[string]models.ProviderConfigView, len(c.Providers))
	for name, pc := range c.Providers {
		providers[name] = models.ProviderConfigView{
			Enabled:         pc.Enabled,
			BaseURL:         pc.BaseURL,
			TimeoutSeconds:  pc.Timeout.Seconds(),
			RateCapacity:    pc.RateCapacity,
			RefillPerSecond: pc.RefillPerSecond,
		}
	}
	return models.ConfigView{
		Providers:              providers,
		RetryMaxAttempts:       c.RetryMaxAttempts,
		RetryBaseDelaySeconds:  c.RetryBaseDelay.Seconds(),
		RetryMaxDelaySeconds:   c.RetryMaxDelay.Seconds(),
		CacheTTLSeconds:        int(c.CacheTTL.Seconds()),
		CacheMaxSize:           c.CacheMaxSize,
		RequestDeadlineSeconds: c.RequestDeadline.Seconds(),
	}
}

func splitTokens(s string) []string {
	var tokens []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// parseDuration parses a duration string, falling back to defaultVal for
// empty, unparseable or non-positive values.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func validate(cfg *Config) error {
	if _, err := strconv.Atoi(cfg.ServerPort); err != nil {
		return fmt.Errorf("server.port must be numeric, got %q", cfg.ServerPort)
	}
	enabled := 0
	for _, pc := range cfg.Providers {
		if pc.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no providers enabled; set OPENWEATHER_API_KEY or WEATHERAPI_API_KEY, or enable openmeteo")
	}
	for name, pc := range cfg.Providers {
		if pc.Enabled && pc.Timeout >= cfg.RequestDeadline {
			return fmt.Errorf("provider %s timeout %s must be below request deadline %s", name, pc.Timeout, cfg.RequestDeadline)
		}
	}
	if cfg.RetryBaseDelay > cfg.RetryMaxDelay {
		return fmt.Errorf("retry.base_delay %s exceeds retry.max_delay %s", cfg.RetryBaseDelay, cfg.RetryMaxDelay)
	}
	return nil
}
