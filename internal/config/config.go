package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Upstream defaults. All of them work without registration; the WAQI "demo"
// token is public.
const (
	DefaultGeocodingURL  = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL   = "https://api.open-meteo.com/v1/forecast"
	DefaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"
	DefaultWAQIURL       = "https://api.waqi.info/feed"
	DefaultWAQIToken     = "demo"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	GeocodingURL     string
	GeocodingTimeout time.Duration

	ForecastURL     string
	ForecastTimeout time.Duration

	AirQualityURL      string
	WAQIURL            string
	WAQIToken          string
	AirQualityTimeout  time.Duration
	BreakerFailures    int
	BreakerOpenTimeout time.Duration

	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout       time.Duration
	InFlightTimeout       time.Duration
	InFlightCheckInterval time.Duration

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int

	CityMaxLength int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Geocoding struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"geocoding"`

	Forecast struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"forecast"`

	AirQuality struct {
		PrimaryURL    string `yaml:"primary_url"`
		FallbackURL   string `yaml:"fallback_url"`
		FallbackToken string `yaml:"fallback_token"`
		Timeout       string `yaml:"timeout"`
		Breaker       struct {
			FailureThreshold int    `yaml:"failure_threshold"`
			OpenTimeout      string `yaml:"open_timeout"`
		} `yaml:"breaker"`
	} `yaml:"air_quality"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`

	Validation struct {
		CityMaxLength int `yaml:"city_max_length"`
	} `yaml:"validation"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) relative to
// the working directory. A .env file, if present, is loaded into the process
// environment first without overriding variables that are already set.
// A missing YAML file is not an error: every setting has a default.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}

	envPath := filepath.Join(cwd, ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	var fc fileConfig
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := fromFile(fc)
	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromFile(fc fileConfig) *Config {
	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.GeocodingURL = orDefault(fc.Geocoding.URL, DefaultGeocodingURL)
	cfg.GeocodingTimeout = parseDurationOrZero(fc.Geocoding.Timeout, 10*time.Second)
	cfg.ForecastURL = orDefault(fc.Forecast.URL, DefaultForecastURL)
	cfg.ForecastTimeout = parseDurationOrZero(fc.Forecast.Timeout, 10*time.Second)

	cfg.AirQualityURL = orDefault(fc.AirQuality.PrimaryURL, DefaultAirQualityURL)
	cfg.WAQIURL = orDefault(fc.AirQuality.FallbackURL, DefaultWAQIURL)
	cfg.WAQIToken = orDefault(fc.AirQuality.FallbackToken, DefaultWAQIToken)
	cfg.AirQualityTimeout = parseDurationOrZero(fc.AirQuality.Timeout, 8*time.Second)
	cfg.BreakerFailures = fc.AirQuality.Breaker.FailureThreshold
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 3
	}
	cfg.BreakerOpenTimeout = parseDuration(fc.AirQuality.Breaker.OpenTimeout, 60*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 40*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 5
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 10
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 45*time.Second)
	cfg.InFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 40*time.Second)
	cfg.InFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.OverloadWindow = parseDuration(fc.Lifecycle.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Lifecycle.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 20
	}

	cfg.CityMaxLength = fc.Validation.CityMaxLength
	if cfg.CityMaxLength <= 0 {
		cfg.CityMaxLength = 100
	}
	return cfg
}

// applyEnv lets the environment override upstream endpoints and the WAQI token.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.ServerPort = v
	}
	if v := strings.TrimSpace(os.Getenv("GEOCODING_URL")); v != "" {
		cfg.GeocodingURL = v
	}
	if v := strings.TrimSpace(os.Getenv("FORECAST_URL")); v != "" {
		cfg.ForecastURL = v
	}
	if v := strings.TrimSpace(os.Getenv("AIR_QUALITY_URL")); v != "" {
		cfg.AirQualityURL = v
	}
	if v := strings.TrimSpace(os.Getenv("WAQI_URL")); v != "" {
		cfg.WAQIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("WAQI_TOKEN")); v != "" {
		cfg.WAQIToken = v
	}
}

func orDefault(s, defaultVal string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	return s
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. Stage timeouts must be positive and
// every upstream URL absolute http(s). RequestTimeout is raised to cover one
// full lookup (geocoding, weather and both air quality sources) if set lower.
func validate(cfg *Config) error {
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"geocoding.timeout", cfg.GeocodingTimeout},
		{"forecast.timeout", cfg.ForecastTimeout},
		{"air_quality.timeout", cfg.AirQualityTimeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			return fmt.Errorf("%s must be positive", t.name)
		}
	}

	urls := []struct {
		name string
		raw  string
	}{
		{"geocoding.url", cfg.GeocodingURL},
		{"forecast.url", cfg.ForecastURL},
		{"air_quality.primary_url", cfg.AirQualityURL},
		{"air_quality.fallback_url", cfg.WAQIURL},
	}
	for _, u := range urls {
		parsed, err := url.Parse(u.raw)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", u.name, u.raw)
		}
	}

	lookup := cfg.GeocodingTimeout + cfg.ForecastTimeout + 2*cfg.AirQualityTimeout
	if cfg.RequestTimeout < lookup {
		cfg.RequestTimeout = lookup + time.Second
	}
	if cfg.InFlightTimeout > cfg.ShutdownTimeout {
		cfg.InFlightTimeout = cfg.ShutdownTimeout
	}
	return nil
}
