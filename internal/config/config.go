package config

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	WeatherAPIKey string `validate:"required"`

	StravaClientID     string `validate:"required"`
	StravaClientSecret string `validate:"required"`
	StravaVerifyToken  string `validate:"required"`
	StravaRedirectURL  string `validate:"omitempty,url"`

	// SessionKey encrypts the athlete session cookie: base64 of 32 bytes.
	SessionKey string `validate:"required,base64"`

	DatabasePath string `validate:"required"`

	// HTTPTimeout bounds every outbound request.
	HTTPTimeout time.Duration `validate:"gt=0"`
	// AnnotateTimeout bounds a whole annotation run.
	AnnotateTimeout   time.Duration `validate:"gt=0"`
	WorkerConcurrency int           `validate:"gte=1"`
	WorkerQueueSize   int           `validate:"gte=1"`

	// OpenWeather client-side rate limit.
	WeatherRPS   float64 `validate:"gt=0"`
	WeatherBurst int     `validate:"gte=1"`

	// In-memory run log retention.
	RunLogMaxHistory int           // max number of runs per athlete (0 = unlimited)
	RunLogMaxAge     time.Duration // max age of runs (0 = unlimited)

	SubscriptionCheckInterval time.Duration `validate:"gte=0"`

	SentryDSN   string
	Environment string
	LogLevel    slog.Level

	Port string `validate:"required"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found or error loading it", "error", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		WeatherAPIKey:      os.Getenv("API_WEATHER_KEY"),
		StravaClientID:     os.Getenv("STRAVA_CLIENT_ID"),
		StravaClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
		StravaVerifyToken:  os.Getenv("STRAVA_VERIFY_TOKEN"),
		StravaRedirectURL:  os.Getenv("STRAVA_REDIRECT_URL"),
		SessionKey:         os.Getenv("SESSION_KEY"),
		DatabasePath:       getenvDefault("DATABASE_PATH", "data/strava-weather.db"),
		WorkerConcurrency:  getenvInt("WORKER_CONCURRENCY", 4),
		WorkerQueueSize:    getenvInt("WORKER_QUEUE_SIZE", 100),
		WeatherBurst:       getenvInt("WEATHER_BURST", 5),
		RunLogMaxHistory:   getenvInt("RUNLOG_MAX_HISTORY", 50),
		SentryDSN:          os.Getenv("SENTRY_DSN"),
		Environment:        getenvDefault("ENVIRONMENT", "development"),
		Port:               getenvDefault("PORT", "8080"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.AnnotateTimeout, err = getenvDuration("ANNOTATE_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.RunLogMaxAge, err = getenvDuration("RUNLOG_MAX_AGE", "168h"); err != nil {
		return nil, err
	}
	if cfg.SubscriptionCheckInterval, err = getenvDuration("SUBSCRIPTION_CHECK_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if cfg.WeatherRPS, err = getenvFloat("WEATHER_RPS", 1); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = parseLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if key, _ := base64.StdEncoding.DecodeString(cfg.SessionKey); len(key) != 32 {
		return nil, fmt.Errorf("invalid SESSION_KEY: want base64 of 32 bytes, got %d bytes", len(key))
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return level, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
