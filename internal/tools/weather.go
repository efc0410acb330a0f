package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Open-Meteo is keyless, which keeps the weather tool usable out of the
// box.
const (
	openMeteoForecast = "https://api.open-meteo.com/v1/forecast"
	openMeteoGeocode  = "https://geocoding-api.open-meteo.com/v1/search"
)

// WeatherInput is the input schema for the weather tool.
type WeatherInput struct {
	City string `json:"city" jsonschema_description:"City name to look up, e.g. 'Tokyo' or 'San Francisco'"`
}

type weatherHandler struct {
	forecastURL string
	geocodeURL  string
	client      *http.Client
	logger      *slog.Logger
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

// weatherCodes maps WMO weather interpretation codes to descriptions.
var weatherCodes = map[int]string{
	0: "clear sky", 1: "mainly clear", 2: "partly cloudy", 3: "overcast",
	45: "fog", 48: "depositing rime fog",
	51: "light drizzle", 53: "moderate drizzle", 55: "dense drizzle",
	61: "slight rain", 63: "moderate rain", 65: "heavy rain",
	71: "slight snow", 73: "moderate snow", 75: "heavy snow",
	80: "slight rain showers", 81: "moderate rain showers", 82: "violent rain showers",
	95: "thunderstorm", 96: "thunderstorm with slight hail", 99: "thunderstorm with heavy hail",
}

func (h *weatherHandler) lookup(ctx context.Context, in WeatherInput) (Result, error) {
	if in.City == "" {
		return errResult(ErrCodeInput, "city must not be empty"), nil
	}

	geo, err := h.geocode(ctx, in.City)
	if err != nil {
		h.logger.Warn("geocoding failed", "city", in.City, "error", err)
		return errResult(ErrCodeNetwork, fmt.Sprintf("locating %q: %v", in.City, err)), nil
	}
	if geo == nil {
		return errResult(ErrCodeNotFound, fmt.Sprintf("no location found for %q", in.City)), nil
	}

	fc, err := h.forecast(ctx, geo.lat, geo.lon)
	if err != nil {
		h.logger.Warn("forecast fetch failed", "city", in.City, "error", err)
		return errResult(ErrCodeNetwork, fmt.Sprintf("fetching weather for %q: %v", in.City, err)), nil
	}

	description := weatherCodes[fc.Current.WeatherCode]
	if description == "" {
		description = fmt.Sprintf("weather code %d", fc.Current.WeatherCode)
	}

	return okResult(fmt.Sprintf("current weather for %s", geo.place), map[string]any{
		"location":      geo.place,
		"description":   description,
		"temperature_c": fc.Current.Temperature,
		"humidity_pct":  fc.Current.Humidity,
		"wind_kmh":      fc.Current.WindSpeed,
	}), nil
}

type location struct {
	place    string
	lat, lon float64
}

func (h *weatherHandler) geocode(ctx context.Context, city string) (*location, error) {
	q := url.Values{"name": {city}, "count": {"1"}}
	var gr geocodeResponse
	if err := h.getJSON(ctx, h.geocodeURL+"?"+q.Encode(), &gr); err != nil {
		return nil, err
	}
	if len(gr.Results) == 0 {
		return nil, nil
	}
	r := gr.Results[0]
	place := r.Name
	if r.Country != "" {
		place += ", " + r.Country
	}
	return &location{place: place, lat: r.Latitude, lon: r.Longitude}, nil
}

func (h *weatherHandler) forecast(ctx context.Context, lat, lon float64) (*forecastResponse, error) {
	q := url.Values{
		"latitude":  {fmt.Sprintf("%.4f", lat)},
		"longitude": {fmt.Sprintf("%.4f", lon)},
		"current":   {"temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code"},
	}
	var fr forecastResponse
	if err := h.getJSON(ctx, h.forecastURL+"?"+q.Encode(), &fr); err != nil {
		return nil, err
	}
	return &fr, nil
}

func (h *weatherHandler) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func defineWeather(g *genkit.Genkit, kit *Kit, _ *slog.Logger) ai.Tool {
	return genkit.DefineTool(
		g,
		"weather",
		"Get the current weather for a city: conditions, temperature, humidity and wind. "+
			"Use this whenever the user asks about weather.",
		func(ctx *ai.ToolContext, in WeatherInput) (Result, error) {
			return kit.Weather(ctx.Context, in)
		},
	)
}
