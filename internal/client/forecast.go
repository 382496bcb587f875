package client

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/kjstillabower/city-weather/internal/models"
)

const currentWeatherFields = "temperature_2m,weather_code,wind_speed_10m,relative_humidity_2m,pressure_msl"

// OpenMeteoForecastClient fetches current conditions from the Open-Meteo forecast API.
type OpenMeteoForecastClient struct {
	up *upstream
}

// NewOpenMeteoForecastClient returns a client for apiURL (e.g. https://api.open-meteo.com/v1/forecast).
func NewOpenMeteoForecastClient(apiURL string, timeout time.Duration) (*OpenMeteoForecastClient, error) {
	up, err := newUpstream("forecast", apiURL, timeout)
	if err != nil {
		return nil, err
	}
	return &OpenMeteoForecastClient{up: up}, nil
}

// Pointers distinguish a missing field from a zero reading.
type forecastResponse struct {
	Current *struct {
		Temperature2m      *float64 `json:"temperature_2m"`
		WeatherCode        *int     `json:"weather_code"`
		WindSpeed10m       *float64 `json:"wind_speed_10m"`
		RelativeHumidity2m *float64 `json:"relative_humidity_2m"`
		PressureMSL        *float64 `json:"pressure_msl"`
	} `json:"current"`
}

// CurrentConditions fetches all five readings in one call. A payload missing any
// of them is ErrMalformedResponse.
func (c *OpenMeteoForecastClient) CurrentConditions(ctx context.Context, lat, lon float64) (models.CurrentConditions, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(lat))
	params.Set("longitude", formatCoord(lon))
	params.Set("current", currentWeatherFields)
	params.Set("temperature_unit", "celsius")

	var resp forecastResponse
	if err := c.up.getJSON(ctx, "", params, &resp); err != nil {
		return models.CurrentConditions{}, err
	}

	cur := resp.Current
	if cur == nil {
		return models.CurrentConditions{}, fmt.Errorf("forecast: %w: missing current", ErrMalformedResponse)
	}
	switch {
	case cur.Temperature2m == nil:
		return models.CurrentConditions{}, fmt.Errorf("forecast: %w: missing temperature_2m", ErrMalformedResponse)
	case cur.WeatherCode == nil:
		return models.CurrentConditions{}, fmt.Errorf("forecast: %w: missing weather_code", ErrMalformedResponse)
	case cur.WindSpeed10m == nil:
		return models.CurrentConditions{}, fmt.Errorf("forecast: %w: missing wind_speed_10m", ErrMalformedResponse)
	case cur.RelativeHumidity2m == nil:
		return models.CurrentConditions{}, fmt.Errorf("forecast: %w: missing relative_humidity_2m", ErrMalformedResponse)
	case cur.PressureMSL == nil:
		return models.CurrentConditions{}, fmt.Errorf("forecast: %w: missing pressure_msl", ErrMalformedResponse)
	}

	return models.CurrentConditions{
		Temperature: *cur.Temperature2m,
		WeatherCode: *cur.WeatherCode,
		WindSpeed:   *cur.WindSpeed10m,
		Humidity:    int(math.Round(*cur.RelativeHumidity2m)),
		PressureMSL: *cur.PressureMSL,
	}, nil
}
