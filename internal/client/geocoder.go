package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/kjstillabower/city-weather/internal/models"
)

// OpenMeteoGeocoder resolves city names with the Open-Meteo geocoding API.
type OpenMeteoGeocoder struct {
	up *upstream
}

// NewOpenMeteoGeocoder returns a geocoder for apiURL (e.g. https://geocoding-api.open-meteo.com/v1/search).
func NewOpenMeteoGeocoder(apiURL string, timeout time.Duration) (*OpenMeteoGeocoder, error) {
	up, err := newUpstream("geocoding", apiURL, timeout)
	if err != nil {
		return nil, err
	}
	return &OpenMeteoGeocoder{up: up}, nil
}

type geocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timezone  string  `json:"timezone"`
	} `json:"results"`
}

// Geocode returns the best match for city, or ErrLocationNotFound when the
// result set is empty. city is expected to be validated already.
func (g *OpenMeteoGeocoder) Geocode(ctx context.Context, city string) (models.Location, error) {
	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "1")
	params.Set("language", "en")
	params.Set("format", "json")

	var resp geocodingResponse
	if err := g.up.getJSON(ctx, "", params, &resp); err != nil {
		return models.Location{}, err
	}
	if len(resp.Results) == 0 {
		return models.Location{}, fmt.Errorf("%w: %q", ErrLocationNotFound, city)
	}

	r := resp.Results[0]
	return models.Location{
		Name:      r.Name,
		Country:   r.Country,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Timezone:  r.Timezone,
	}, nil
}
