package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/strava-weather/internal/weather"
)

const openWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherProvider implements weather.WeatherFetcher and
// weather.AirQualityFetcher on top of the OpenWeatherMap API.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig

	// Each endpoint trips independently.
	weatherCircuit *gobreaker.CircuitBreaker
	airCircuit     *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(cfg HTTPClientConfig, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: openWeatherBaseURL,
		httpCfg: cfg,

		weatherCircuit: newCircuitBreaker("openweather-timemachine"),
		airCircuit:     newCircuitBreaker("openweather-air"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// FetchWeather queries the One Call time machine endpoint for the conditions
// at a past instant.
func (p *OpenWeatherProvider) FetchWeather(ctx context.Context, loc weather.Location, at time.Time, lang weather.Language) (weather.Sample, error) {
	if p.apiKey == "" {
		return weather.Sample{}, fmt.Errorf("%w: openweather api key is not configured", ErrUpstream)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", formatCoord(loc.Lat))
		values.Set("lon", formatCoord(loc.Lon))
		values.Set("dt", strconv.FormatInt(at.UTC().Unix(), 10))
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("lang", string(lang))

		u := fmt.Sprintf("%s/onecall/timemachine?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.httpCfg, p.weatherCircuit, buildRequest)
	if err != nil {
		return weather.Sample{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Current *struct {
			Dt        int64    `json:"dt"`
			Temp      *float64 `json:"temp"`
			FeelsLike *float64 `json:"feels_like"`
			Humidity  *float64 `json:"humidity"`
			WindSpeed *float64 `json:"wind_speed"`
			WindDeg   *float64 `json:"wind_deg"`
			Weather   []struct {
				ID          *int    `json:"id"`
				Description *string `json:"description"`
				Icon        *string `json:"icon"`
			} `json:"weather"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Sample{}, fmt.Errorf("%w: decode openweather response: %w", ErrUpstream, err)
	}

	cur := payload.Current
	switch {
	case cur == nil:
		return weather.Sample{}, missingField(p.name, "current")
	case len(cur.Weather) == 0:
		return weather.Sample{}, missingField(p.name, "current.weather[0]")
	case cur.Weather[0].Description == nil:
		return weather.Sample{}, missingField(p.name, "current.weather[0].description")
	case cur.Weather[0].ID == nil:
		return weather.Sample{}, missingField(p.name, "current.weather[0].id")
	case cur.Weather[0].Icon == nil:
		return weather.Sample{}, missingField(p.name, "current.weather[0].icon")
	case cur.Temp == nil:
		return weather.Sample{}, missingField(p.name, "current.temp")
	case cur.FeelsLike == nil:
		return weather.Sample{}, missingField(p.name, "current.feels_like")
	case cur.Humidity == nil:
		return weather.Sample{}, missingField(p.name, "current.humidity")
	case cur.WindSpeed == nil:
		return weather.Sample{}, missingField(p.name, "current.wind_speed")
	case cur.WindDeg == nil:
		return weather.Sample{}, missingField(p.name, "current.wind_deg")
	}

	ts := at.UTC()
	if cur.Dt != 0 {
		ts = time.Unix(cur.Dt, 0).UTC()
	}

	return weather.Sample{
		Timestamp:   ts,
		Description: *cur.Weather[0].Description,
		TempC:       *cur.Temp,
		FeelsLikeC:  *cur.FeelsLike,
		HumidityPct: int(math.Round(*cur.Humidity)),
		WindSpeedMS: *cur.WindSpeed,
		WindDeg:     int(math.Round(*cur.WindDeg)) % 360,
		ConditionID: *cur.Weather[0].ID,
		IconCode:    *cur.Weather[0].Icon,
	}, nil
}

// FetchAirQuality queries the current air pollution endpoint.
func (p *OpenWeatherProvider) FetchAirQuality(ctx context.Context, loc weather.Location) (weather.AirQuality, error) {
	if p.apiKey == "" {
		return weather.AirQuality{}, fmt.Errorf("%w: openweather api key is not configured", ErrUpstream)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", formatCoord(loc.Lat))
		values.Set("lon", formatCoord(loc.Lon))
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s/air_pollution?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.httpCfg, p.airCircuit, buildRequest)
	if err != nil {
		return weather.AirQuality{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []struct {
			Main *struct {
				AQI *int `json:"aqi"`
			} `json:"main"`
			Components *struct {
				PM25 *float64 `json:"pm2_5"`
				SO2  *float64 `json:"so2"`
				NO2  *float64 `json:"no2"`
				NH3  *float64 `json:"nh3"`
			} `json:"components"`
		} `json:"list"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.AirQuality{}, fmt.Errorf("%w: decode air pollution response: %w", ErrUpstream, err)
	}

	if len(payload.List) == 0 {
		return weather.AirQuality{}, missingField(p.name, "list[0]")
	}
	item := payload.List[0]
	switch {
	case item.Main == nil || item.Main.AQI == nil:
		return weather.AirQuality{}, missingField(p.name, "list[0].main.aqi")
	case item.Components == nil:
		return weather.AirQuality{}, missingField(p.name, "list[0].components")
	case item.Components.PM25 == nil:
		return weather.AirQuality{}, missingField(p.name, "list[0].components.pm2_5")
	case item.Components.SO2 == nil:
		return weather.AirQuality{}, missingField(p.name, "list[0].components.so2")
	case item.Components.NO2 == nil:
		return weather.AirQuality{}, missingField(p.name, "list[0].components.no2")
	case item.Components.NH3 == nil:
		return weather.AirQuality{}, missingField(p.name, "list[0].components.nh3")
	}

	if _, ok := weather.AQIEmoji(*item.Main.AQI); !ok {
		return weather.AirQuality{}, fmt.Errorf("%w: aqi %d out of range", ErrUpstream, *item.Main.AQI)
	}

	return weather.AirQuality{
		AQI:  *item.Main.AQI,
		PM25: *item.Components.PM25,
		SO2:  *item.Components.SO2,
		NO2:  *item.Components.NO2,
		NH3:  *item.Components.NH3,
	}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var (
	_ weather.WeatherFetcher    = (*OpenWeatherProvider)(nil)
	_ weather.AirQualityFetcher = (*OpenWeatherProvider)(nil)
)
