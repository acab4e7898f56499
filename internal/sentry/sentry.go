package sentry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

type Config struct {
	DSN         string
	Environment string
	Release     string
}

// Reporter sends errors to Sentry. A Reporter built from a config without a
// DSN only logs.
type Reporter struct {
	enabled bool
	logger  *slog.Logger
}

// Init initializes Sentry. An empty DSN disables error tracking.
func Init(cfg Config, logger *slog.Logger) (*Reporter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.DSN == "" {
		logger.Warn("Sentry DSN not configured - error tracking disabled")
		return &Reporter{logger: logger}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Request != nil && event.Request.Headers != nil {
				delete(event.Request.Headers, "Authorization")
				delete(event.Request.Headers, "Cookie")
			}
			return event
		},
	})
	if err != nil {
		logger.Error("Failed to initialize Sentry", "error", err)
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	logger.Info("Sentry initialized", "environment", cfg.Environment, "release", cfg.Release)
	return &Reporter{enabled: true, logger: logger}, nil
}

// CaptureException captures an error with extra context.
func (r *Reporter) CaptureException(err error, context map[string]any) {
	if err == nil || !r.enabled {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for key, value := range context {
			scope.SetTag(key, fmt.Sprint(value))
		}
		sentry.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent.
func (r *Reporter) Flush(timeout time.Duration) {
	if !r.enabled {
		return
	}
	if !sentry.Flush(timeout) {
		r.logger.Warn("Sentry flush timed out")
	}
}
