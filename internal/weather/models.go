package weather

import (
	"fmt"
	"time"
)

// Language selects the locale used for labels, compass points and the
// provider's condition description.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageRussian Language = "ru"
)

// Settings are the per-athlete preferences controlling what goes into the
// weather description.
type Settings struct {
	UserID         int64    `json:"userId"`
	Language       Language `json:"language" validate:"required,oneof=en ru"`
	ShowHumidity   bool     `json:"showHumidity"`
	ShowWind       bool     `json:"showWind"`
	ShowIcon       bool     `json:"showIcon"`
	ShowAirQuality bool     `json:"showAirQuality"`
}

// DefaultSettings returns the preferences used for athletes that never
// saved their own.
func DefaultSettings(userID int64) Settings {
	return Settings{
		UserID:         userID,
		Language:       LanguageEnglish,
		ShowHumidity:   true,
		ShowWind:       true,
		ShowIcon:       false,
		ShowAirQuality: true,
	}
}

// Location is a point on the globe for which weather is requested.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key returns a canonical string form of the location for logs.
func (l Location) Key() string {
	return fmt.Sprintf("%f,%f", l.Lat, l.Lon)
}

// Sample is a historical point-in-time weather observation.
type Sample struct {
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Description string    `json:"description"`
	TempC       float64   `json:"tempC"`
	FeelsLikeC  float64   `json:"feelsLikeC"`
	HumidityPct int       `json:"humidityPct"`
	WindSpeedMS float64   `json:"windSpeedMs"`
	WindDeg     int       `json:"windDeg"`
	ConditionID int       `json:"conditionId"`
	IconCode    string    `json:"iconCode"`
}

// AirQuality is a current air pollution reading.
// AQI: 1 = Good, 2 = Fair, 3 = Moderate, 4 = Poor, 5 = Very Poor.
type AirQuality struct {
	AQI  int     `json:"aqi"`
	PM25 float64 `json:"pm2_5"`
	SO2  float64 `json:"so2"`
	NO2  float64 `json:"no2"`
	NH3  float64 `json:"nh3"`
}
