package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kjstillabower/city-weather/internal/circuitbreaker"
	"github.com/kjstillabower/city-weather/internal/client"
	"github.com/kjstillabower/city-weather/internal/config"
	"github.com/kjstillabower/city-weather/internal/service"
)

func testConfig(geo, wx, aq, waqi string) *config.Config {
	return &config.Config{
		GeocodingURL:       geo,
		GeocodingTimeout:   time.Second,
		ForecastURL:        wx,
		ForecastTimeout:    time.Second,
		AirQualityURL:      aq,
		WAQIURL:            waqi,
		WAQIToken:          "demo",
		AirQualityTimeout:  time.Second,
		BreakerFailures:    1,
		BreakerOpenTimeout: time.Hour,
		CityMaxLength:      100,
	}
}

func TestBuild_InvalidURL(t *testing.T) {
	cfg := testConfig("not a url", "http://x", "http://x", "http://x")
	_, err := Build(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geocoding client")
}

func TestBuild_MissingToken(t *testing.T) {
	cfg := testConfig("http://x", "http://x", "http://x", "http://x")
	cfg.WAQIToken = ""
	_, err := Build(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waqi client")
}

func TestBuild_FallbackBehindBreaker(t *testing.T) {
	ok := func(body string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
	}
	geo := ok(`{"results":[{"name":"Lima","country":"Peru","latitude":-12.04318,"longitude":-77.02824,"timezone":"America/Lima"}]}`)
	defer geo.Close()
	wx := ok(`{"current":{"temperature_2m":17.0,"weather_code":45,"wind_speed_10m":3.0,"relative_humidity_2m":83,"pressure_msl":1013.0}}`)
	defer wx.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	p, err := Build(testConfig(geo.URL, wx.URL, down.URL, down.URL), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, p.Breakers, 1)
	assert.Equal(t, client.ProviderWAQI, p.Breakers[0].Component())

	report, err := p.Service.Lookup(context.Background(), "Lima")
	require.NoError(t, err)
	assert.Nil(t, report.AirQuality)
	assert.Equal(t, "Foggy", report.Condition.Description)
	assert.Equal(t, circuitbreaker.StateOpen, p.Breakers[0].State())

	_, err = p.Service.Lookup(context.Background(), "")
	assert.True(t, errors.Is(err, service.ErrInvalidCity))
}
