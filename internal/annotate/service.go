package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/strava-weather/internal/activity"
	"github.com/i474232898/strava-weather/internal/weather"
)

// ActivitySource reads activities and writes patches back to them.
type ActivitySource interface {
	GetActivity(ctx context.Context, athleteID, activityID int64) (activity.Activity, error)
	ModifyActivity(ctx context.Context, athleteID, activityID int64, patch activity.Patch) error
}

// SettingsStore returns an athlete's description preferences.
type SettingsStore interface {
	GetSettings(ctx context.Context, athleteID int64) (weather.Settings, error)
}

// Service runs the annotation pipeline for one activity at a time. It keeps
// no state between runs.
type Service struct {
	activities ActivitySource
	settings   SettingsStore
	weather    weather.WeatherFetcher
	air        weather.AirQualityFetcher
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new Service. air may be nil, in which case air quality
// is never attached.
func NewService(
	activities ActivitySource,
	settings SettingsStore,
	wf weather.WeatherFetcher,
	air weather.AirQualityFetcher,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		activities: activities,
		settings:   settings,
		weather:    wf,
		air:        air,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Annotate fetches the activity, decides whether and how to annotate it, and
// writes the patch back. A skip is a successful outcome; errors are returned
// only when the activity or settings cannot be read or the patch cannot be
// written.
func (s *Service) Annotate(ctx context.Context, athleteID, activityID int64) (Result, error) {
	logger := s.logger.With("athlete_id", athleteID, "activity_id", activityID)

	a, err := s.activities.GetActivity(ctx, athleteID, activityID)
	if err != nil {
		return Result{}, fmt.Errorf("get activity %d: %w", activityID, err)
	}

	if reason, ok := activity.Evaluate(a); !ok {
		logger.Info("activity not annotated", "reason", reason)
		return Skip(reason), nil
	}

	settings, err := s.settings.GetSettings(ctx, athleteID)
	if err != nil {
		return Result{}, fmt.Errorf("get settings for athlete %d: %w", athleteID, err)
	}

	res := s.Enrich(ctx, a, settings)
	if res.Skipped {
		return res, nil
	}

	if err := s.activities.ModifyActivity(ctx, athleteID, activityID, res.Patch); err != nil {
		return res, fmt.Errorf("modify activity %d: %w", activityID, err)
	}

	logger.Info("activity annotated", "renamed", res.Patch.Name != "")
	return res, nil
}

// Enrich computes the result for an activity that has already been read. It
// performs the upstream weather lookups but writes nothing.
func (s *Service) Enrich(ctx context.Context, a activity.Activity, settings weather.Settings) Result {
	if reason, ok := activity.Evaluate(a); !ok {
		return Skip(reason)
	}

	logger := s.logger.With("athlete_id", settings.UserID, "activity_id", a.ID)
	now := s.now()

	times := activity.ResolveTime(a.StartDate, a.ElapsedTime, now)
	if times.UsedFallback {
		logger.Warn("bad start date, sampling weather one hour ago",
			"start_date", a.StartDate,
			"logged_at", now.Unix(),
		)
	}

	lat, lon, _ := a.Coordinates()
	loc := weather.Location{Lat: lat, Lon: lon}
	logger = logger.With("lat", lat, "lon", lon, "sample_time", times.Sample.Unix())

	sample, err := s.weather.FetchWeather(ctx, loc, times.Sample, settings.Language)
	if err != nil {
		logger.Warn("weather request failed", "provider", s.weather.Name(), "error", err)
		return Skip(SkipWeatherUnavailable)
	}

	var icon string
	if settings.ShowIcon {
		icon, err = weather.Icon(sample)
		if err != nil {
			logger.Warn("weather icon unavailable", "error", err)
			icon = ""
		}
	}

	var air *weather.AirQuality
	if settings.ShowAirQuality && s.air != nil && weather.AirQualityEligible(times.Start, a.ElapsedTime, now) {
		aq, err := s.air.FetchAirQuality(ctx, loc)
		if err != nil {
			logger.Warn("air quality request failed", "provider", s.air.Name(), "error", err)
		} else {
			air = &aq
		}
	}

	return Patched(weather.Compose(weather.ComposeInput{
		ExistingDescription: a.TrimmedDescription(),
		Title:               a.Name,
		Weather:             &sample,
		Air:                 air,
		Icon:                icon,
		Settings:            settings,
	}))
}
