package weather

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/i474232898/strava-weather/internal/activity"
)

// airQualityWindow is how long after an activity ends a current air quality
// reading is still considered representative of it.
const airQualityWindow = 2 * time.Hour

// ComposeInput bundles everything the description composer needs. Weather,
// Air and Icon are optional.
type ComposeInput struct {
	ExistingDescription string
	Title               string
	Weather             *Sample
	Air                 *AirQuality
	Icon                string
	Settings            Settings
}

// Compose renders the patch for an activity. It never inspects whether the
// description was already annotated; callers gate on that.
func Compose(in ComposeInput) activity.Patch {
	var patch activity.Patch

	if in.Settings.ShowIcon && in.Icon != "" && !strings.HasPrefix(in.Title, in.Icon) {
		patch.Name = in.Icon + " " + in.Title
	}

	description := strings.TrimRightFunc(in.ExistingDescription, unicode.IsSpace)
	if description != "" {
		description += "\n"
	}

	if in.Weather != nil {
		description += WeatherBlock(*in.Weather, in.Settings)
	}
	if in.Air != nil {
		description += AirBlock(*in.Air, in.Settings.Language)
	}

	patch.Description = description
	return patch
}

// WeatherBlock formats the temperature, humidity and wind line.
func WeatherBlock(s Sample, settings Settings) string {
	l := labelsFor(settings.Language)

	var b strings.Builder
	fmt.Fprintf(&b, "%s, 🌡 %.0f°C (%s %.0f°C)",
		capitalizeFirst(s.Description, settings.Language), s.TempC, l.FeelsLike, s.FeelsLikeC)

	if settings.ShowHumidity {
		fmt.Fprintf(&b, ", 💦 %d%%", s.HumidityPct)
	}

	if settings.ShowWind {
		speed := fmt.Sprintf("%.0f", s.WindSpeedMS)
		fmt.Fprintf(&b, ", 🌬️ %s%s", speed, l.WindUnit)
		if speed != "0" {
			fmt.Fprintf(&b, " (%s %s).", l.WindFrom, CompassDirection(float64(s.WindDeg), settings.Language))
		} else {
			b.WriteString(".")
		}
	}

	return b.String()
}

// AirBlock formats the air quality line, including its leading newline.
// An AQI outside 1..5 renders nothing.
func AirBlock(aq AirQuality, lang Language) string {
	emoji, ok := AQIEmoji(aq.AQI)
	if !ok {
		return ""
	}
	return fmt.Sprintf("\n%s %s %.0f(PM2.5), %.0f(SO₂), %.0f(NO₂), %.1f(NH₃).",
		labelsFor(lang).Air, emoji, aq.PM25, aq.SO2, aq.NO2, aq.NH3)
}

// AirQualityEligible reports whether a current air quality reading may be
// attached to an activity that started at start and lasted elapsed seconds.
func AirQualityEligible(start time.Time, elapsedSeconds int, now time.Time) bool {
	end := start.Add(time.Duration(elapsedSeconds) * time.Second)
	return end.Add(airQualityWindow).Unix() > now.Unix()
}

func capitalizeFirst(s string, lang Language) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	upper := cases.Upper(language.Make(string(lang)))
	return upper.String(string(r)) + s[size:]
}
