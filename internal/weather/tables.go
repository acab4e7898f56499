package weather

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownIcon is returned when a provider icon code has no emoji mapping.
var ErrUnknownIcon = errors.New("unknown weather icon code")

// thunderstormIcon overrides the icon table for thunderstorms without rain.
const thunderstormIcon = "🌩"

var dryThunderstormIDs = map[int]bool{210: true, 211: true, 212: true, 221: true}

// Icon codes as documented at https://openweathermap.org/weather-conditions.
var iconTable = map[string]string{
	"01d": "☀️",
	"01n": "🌙",
	"02d": "🌤",
	"02n": "☁",
	"03d": "☁",
	"03n": "☁",
	"04d": "🌥",
	"04n": "🌥",
	"09d": "🌧",
	"09n": "🌧",
	"10d": "🌦",
	"10n": "🌧",
	"11d": "⛈",
	"11n": "⛈",
	"13d": "🌨",
	"13n": "🌨️",
	"50d": "🌫",
	"50n": "🌫",
}

// aqiEmoji is indexed by AQI-1.
var aqiEmoji = [5]string{"😃", "🙂", "😐", "🙁", "😨"}

// Sixteen compass points per language; the trailing entry mirrors north.
var compassPoints = map[Language][17]string{
	LanguageEnglish: {"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW", "N"},
	LanguageRussian: {"С", "ССВ", "СВ", "ВСВ", "В", "ВЮВ", "ЮВ", "ЮЮВ", "Ю", "ЮЮЗ", "ЮЗ", "ЗЮЗ", "З", "ЗСЗ", "СЗ", "ССЗ", "С"},
}

type labels struct {
	FeelsLike string
	WindUnit  string
	WindFrom  string
	Air       string
}

var translations = map[Language]labels{
	LanguageEnglish: {FeelsLike: "feels like", WindUnit: "m/s", WindFrom: "from", Air: "Air"},
	LanguageRussian: {FeelsLike: "по ощущениям", WindUnit: "м/с", WindFrom: "с", Air: "Воздух"},
}

func labelsFor(lang Language) labels {
	if l, ok := translations[lang]; ok {
		return l
	}
	return translations[LanguageEnglish]
}

// CompassDirection converts a wind bearing in degrees into a 16-point compass
// label. Unknown languages fall back to English.
func CompassDirection(degree float64, lang Language) string {
	points, ok := compassPoints[lang]
	if !ok {
		points = compassPoints[LanguageEnglish]
	}

	d := math.Mod(degree, 360)
	if d < 0 {
		d += 360
	}
	idx := int(math.Floor(d/22.5+0.5)) % 16
	return points[idx]
}

// Icon picks the emoji that represents a weather sample.
func Icon(s Sample) (string, error) {
	if dryThunderstormIDs[s.ConditionID] {
		return thunderstormIcon, nil
	}
	icon, ok := iconTable[s.IconCode]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownIcon, s.IconCode)
	}
	return icon, nil
}

// AQIEmoji returns the face emoji for an AQI value in the 1..5 range.
func AQIEmoji(aqi int) (string, bool) {
	if aqi < 1 || aqi > len(aqiEmoji) {
		return "", false
	}
	return aqiEmoji[aqi-1], true
}
