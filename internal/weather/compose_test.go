package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearSky() Sample {
	return Sample{
		Description: "clear sky",
		TempC:       20.4,
		FeelsLikeC:  19.2,
		HumidityPct: 55,
		WindSpeedMS: 3.2,
		WindDeg:     90,
		ConditionID: 800,
		IconCode:    "01d",
	}
}

func TestWeatherBlock(t *testing.T) {
	tests := []struct {
		name     string
		sample   Sample
		settings Settings
		want     string
	}{
		{
			name:     "all fields in english",
			sample:   clearSky(),
			settings: DefaultSettings(1),
			want:     "Clear sky, 🌡 20°C (feels like 19°C), 💦 55%, 🌬️ 3m/s (from E).",
		},
		{
			name:   "humidity and wind disabled",
			sample: clearSky(),
			settings: Settings{
				Language: LanguageEnglish,
			},
			want: "Clear sky, 🌡 20°C (feels like 19°C)",
		},
		{
			name: "calm wind has no direction",
			sample: func() Sample {
				s := clearSky()
				s.WindSpeedMS = 0.4
				return s
			}(),
			settings: DefaultSettings(1),
			want:     "Clear sky, 🌡 20°C (feels like 19°C), 💦 55%, 🌬️ 0m/s.",
		},
		{
			name: "russian labels",
			sample: Sample{
				Description: "ясно",
				TempC:       -5,
				FeelsLikeC:  -9.6,
				HumidityPct: 80,
				WindSpeedMS: 5,
				WindDeg:     180,
			},
			settings: Settings{Language: LanguageRussian, ShowHumidity: true, ShowWind: true},
			want:     "Ясно, 🌡 -5°C (по ощущениям -10°C), 💦 80%, 🌬️ 5м/с (с Ю).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeatherBlock(tt.sample, tt.settings))
		})
	}
}

func TestAirBlock(t *testing.T) {
	aq := AirQuality{AQI: 2, PM25: 5.44, SO2: 1.2, NO2: 10.7, NH3: 0.24}

	assert.Equal(t, "\nAir 🙂 5(PM2.5), 1(SO₂), 11(NO₂), 0.2(NH₃).", AirBlock(aq, LanguageEnglish))
	assert.Equal(t, "\nВоздух 🙂 5(PM2.5), 1(SO₂), 11(NO₂), 0.2(NH₃).", AirBlock(aq, LanguageRussian))

	aq.AQI = 0
	assert.Empty(t, AirBlock(aq, LanguageEnglish))
	aq.AQI = 6
	assert.Empty(t, AirBlock(aq, LanguageEnglish))
}

func TestCompose(t *testing.T) {
	sample := clearSky()
	settings := DefaultSettings(1)

	t.Run("empty description gets the block only", func(t *testing.T) {
		patch := Compose(ComposeInput{Title: "Morning Run", Weather: &sample, Settings: settings})
		assert.Equal(t, "Clear sky, 🌡 20°C (feels like 19°C), 💦 55%, 🌬️ 3m/s (from E).", patch.Description)
		assert.Empty(t, patch.Name)
	})

	t.Run("existing description is trimmed and separated", func(t *testing.T) {
		patch := Compose(ComposeInput{
			ExistingDescription: "Easy pace  \n\n",
			Title:               "Morning Run",
			Weather:             &sample,
			Settings:            settings,
		})
		assert.Equal(t, "Easy pace\nClear sky, 🌡 20°C (feels like 19°C), 💦 55%, 🌬️ 3m/s (from E).", patch.Description)
	})

	t.Run("whitespace only description counts as empty", func(t *testing.T) {
		patch := Compose(ComposeInput{ExistingDescription: " \n\t", Weather: &sample, Settings: settings})
		assert.Equal(t, "Clear sky, 🌡 20°C (feels like 19°C), 💦 55%, 🌬️ 3m/s (from E).", patch.Description)
	})

	t.Run("air block follows weather block", func(t *testing.T) {
		aq := AirQuality{AQI: 1, PM25: 2, SO2: 1, NO2: 3, NH3: 0.5}
		patch := Compose(ComposeInput{Weather: &sample, Air: &aq, Settings: settings})
		assert.Equal(t, "Clear sky, 🌡 20°C (feels like 19°C), 💦 55%, 🌬️ 3m/s (from E).\nAir 😃 2(PM2.5), 1(SO₂), 3(NO₂), 0.5(NH₃).", patch.Description)
	})

	t.Run("icon is prefixed to the title when enabled", func(t *testing.T) {
		withIcon := settings
		withIcon.ShowIcon = true

		patch := Compose(ComposeInput{Title: "Morning Run", Weather: &sample, Icon: "☀️", Settings: withIcon})
		assert.Equal(t, "☀️ Morning Run", patch.Name)

		patch = Compose(ComposeInput{Title: "☀️ Morning Run", Weather: &sample, Icon: "☀️", Settings: withIcon})
		assert.Empty(t, patch.Name, "title already carries the icon")

		patch = Compose(ComposeInput{Title: "Morning Run", Weather: &sample, Settings: withIcon})
		assert.Empty(t, patch.Name, "no icon resolved")
	})

	t.Run("icon is ignored when disabled", func(t *testing.T) {
		patch := Compose(ComposeInput{Title: "Morning Run", Weather: &sample, Icon: "☀️", Settings: settings})
		assert.Empty(t, patch.Name)
	})
}

func TestAirQualityEligible(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	elapsed := 3600
	end := start.Add(time.Hour)

	assert.True(t, AirQualityEligible(start, elapsed, end.Add(2*time.Hour-time.Second)))
	assert.False(t, AirQualityEligible(start, elapsed, end.Add(2*time.Hour)))
	assert.False(t, AirQualityEligible(start, elapsed, end.Add(2*time.Hour+time.Second)))
	assert.True(t, AirQualityEligible(start, elapsed, start))
}

func TestCapitalizeFirst(t *testing.T) {
	assert.Equal(t, "Light rain", capitalizeFirst("light rain", LanguageEnglish))
	assert.Equal(t, "Небольшой дождь", capitalizeFirst("небольшой дождь", LanguageRussian))
	assert.Equal(t, "Overcast Clouds", capitalizeFirst("overcast Clouds", LanguageEnglish))
	assert.Equal(t, "", capitalizeFirst("", LanguageEnglish))
}
