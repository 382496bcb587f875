package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/kjstillabower/city-weather/internal/models"
)

// Provider names, used for logs, metrics and models.AirQuality.Source.
const (
	ProviderOpenMeteoAirQuality = "open_meteo_air_quality"
	ProviderWAQI                = "waqi"
)

// OpenMeteoAirQualityClient reads US AQI and PM2.5 from the Open-Meteo air quality API.
type OpenMeteoAirQualityClient struct {
	up *upstream
}

// NewOpenMeteoAirQualityClient returns a client for apiURL
// (e.g. https://air-quality-api.open-meteo.com/v1/air-quality).
func NewOpenMeteoAirQualityClient(apiURL string, timeout time.Duration) (*OpenMeteoAirQualityClient, error) {
	up, err := newUpstream(ProviderOpenMeteoAirQuality, apiURL, timeout)
	if err != nil {
		return nil, err
	}
	return &OpenMeteoAirQualityClient{up: up}, nil
}

type openMeteoAirQualityResponse struct {
	Current *struct {
		USAQI *float64 `json:"us_aqi"`
		PM25  *float64 `json:"pm2_5"`
	} `json:"current"`
}

func (c *OpenMeteoAirQualityClient) Name() string { return ProviderOpenMeteoAirQuality }

// CurrentAirQuality returns whatever the API reported; range checks are the caller's.
func (c *OpenMeteoAirQualityClient) CurrentAirQuality(ctx context.Context, lat, lon float64) (models.AirQualityReading, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(lat))
	params.Set("longitude", formatCoord(lon))
	params.Set("current", "us_aqi,pm2_5")
	params.Set("timezone", "auto")

	var resp openMeteoAirQualityResponse
	if err := c.up.getJSON(ctx, "", params, &resp); err != nil {
		return models.AirQualityReading{}, err
	}
	if resp.Current == nil {
		return models.AirQualityReading{}, nil
	}
	return models.AirQualityReading{
		Index: resp.Current.USAQI,
		PM25:  resp.Current.PM25,
	}, nil
}

// WAQIClient reads the AQI from the World Air Quality Index geo feed. The default
// "demo" token is a public, rate-limited key; treat this source as best-effort.
type WAQIClient struct {
	up    *upstream
	token string
}

// NewWAQIClient returns a client for apiURL (e.g. https://api.waqi.info/feed).
func NewWAQIClient(apiURL, token string, timeout time.Duration) (*WAQIClient, error) {
	if token == "" {
		return nil, fmt.Errorf("%s: token is required", ProviderWAQI)
	}
	up, err := newUpstream(ProviderWAQI, apiURL, timeout)
	if err != nil {
		return nil, err
	}
	return &WAQIClient{up: up, token: token}, nil
}

// data is a string error message when status is not "ok", so it is decoded lazily.
type waqiResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// aqi is a number, or "-" when the station has no reading.
type waqiData struct {
	AQI interface{} `json:"aqi"`
}

func (c *WAQIClient) Name() string { return ProviderWAQI }

// CurrentAirQuality queries GET {base}/geo:{lat};{lon}/?token=... Only a response
// with status "ok" is consumed. WAQI reports no PM2.5 concentration here.
func (c *WAQIClient) CurrentAirQuality(ctx context.Context, lat, lon float64) (models.AirQualityReading, error) {
	path := fmt.Sprintf("/geo:%s;%s/", formatCoord(lat), formatCoord(lon))
	params := url.Values{}
	params.Set("token", c.token)

	var resp waqiResponse
	if err := c.up.getJSON(ctx, path, params, &resp); err != nil {
		return models.AirQualityReading{}, err
	}
	if resp.Status != "ok" {
		return models.AirQualityReading{}, fmt.Errorf("%s: %w: status %q", ProviderWAQI, ErrUpstreamFailure, resp.Status)
	}

	var data waqiData
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return models.AirQualityReading{}, fmt.Errorf("%s: %w: %v", ProviderWAQI, ErrMalformedResponse, err)
		}
	}
	v, ok := data.AQI.(float64)
	if !ok {
		return models.AirQualityReading{}, nil
	}
	return models.AirQualityReading{Index: &v}, nil
}
