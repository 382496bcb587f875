// Package app builds the lookup pipeline from configuration. Both binaries
// share it so the HTTP service and the terminal front end resolve air quality
// the same way.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/city-weather/internal/circuitbreaker"
	"github.com/kjstillabower/city-weather/internal/client"
	"github.com/kjstillabower/city-weather/internal/config"
	"github.com/kjstillabower/city-weather/internal/observability"
	"github.com/kjstillabower/city-weather/internal/service"
)

// Pipeline is the wired lookup service plus the breakers guarding its optional sources.
type Pipeline struct {
	Service  *service.WeatherService
	Breakers []*circuitbreaker.CircuitBreaker
}

// Build creates the upstream clients and the service. The WAQI fallback sits
// behind a circuit breaker; the primary air quality source does not.
func Build(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	geocoder, err := client.NewOpenMeteoGeocoder(cfg.GeocodingURL, cfg.GeocodingTimeout)
	if err != nil {
		return nil, fmt.Errorf("geocoding client: %w", err)
	}
	forecast, err := client.NewOpenMeteoForecastClient(cfg.ForecastURL, cfg.ForecastTimeout)
	if err != nil {
		return nil, fmt.Errorf("forecast client: %w", err)
	}
	primary, err := client.NewOpenMeteoAirQualityClient(cfg.AirQualityURL, cfg.AirQualityTimeout)
	if err != nil {
		return nil, fmt.Errorf("air quality client: %w", err)
	}
	fallback, err := client.NewWAQIClient(cfg.WAQIURL, cfg.WAQIToken, cfg.AirQualityTimeout)
	if err != nil {
		return nil, fmt.Errorf("waqi client: %w", err)
	}

	cb := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailures,
		Timeout:          cfg.BreakerOpenTimeout,
		Component:        fallback.Name(),
		OnStateChange: func(component string, from, to circuitbreaker.State) {
			observability.RecordCircuitBreakerTransition(component, from.String(), to.String(), int(to))
			if logger != nil {
				logger.Info("circuit breaker transition",
					zap.String("component", component),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			}
		},
	})

	observability.CircuitBreakerState.WithLabelValues(cb.Component()).Set(float64(circuitbreaker.StateClosed))

	resolver := service.NewAirQualityResolver(primary, service.WithCircuitBreaker(fallback, cb))
	return &Pipeline{
		Service:  service.NewWeatherService(geocoder, forecast, resolver, cfg.CityMaxLength),
		Breakers: []*circuitbreaker.CircuitBreaker{cb},
	}, nil
}
