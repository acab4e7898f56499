package weather

import (
	"context"
	"time"
)

// WeatherFetcher returns historical weather for a location at a given instant.
type WeatherFetcher interface {
	Name() string
	FetchWeather(ctx context.Context, loc Location, at time.Time, lang Language) (Sample, error)
}

// AirQualityFetcher returns the current air quality for a location. There is
// no historical variant; callers decide whether "now" is close enough.
type AirQualityFetcher interface {
	Name() string
	FetchAirQuality(ctx context.Context, loc Location) (AirQuality, error)
}
