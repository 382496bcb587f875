package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/kjstillabower/city-weather/internal/circuitbreaker"
	"github.com/kjstillabower/city-weather/internal/classify"
	"github.com/kjstillabower/city-weather/internal/client"
	"github.com/kjstillabower/city-weather/internal/models"
	"github.com/kjstillabower/city-weather/internal/observability"
)

// SourceUnavailable is the metrics label when no provider produced an index.
const SourceUnavailable = "unavailable"

// AirQualityResolver tries providers in order and keeps the first valid index.
// It never returns an error: total failure is a nil result.
type AirQualityResolver struct {
	providers []client.AirQualityProvider
}

// NewAirQualityResolver returns a resolver over providers, primary first.
func NewAirQualityResolver(providers ...client.AirQualityProvider) *AirQualityResolver {
	return &AirQualityResolver{providers: providers}
}

// Resolve returns the first reading whose index lies within the AQI scale.
// A PM2.5 value from an earlier provider is kept when a later one supplies the index.
func (r *AirQualityResolver) Resolve(ctx context.Context, lat, lon float64) *models.AirQuality {
	logger := loggerFromContext(ctx)
	var pm25 *float64

	for _, p := range r.providers {
		reading, err := p.CurrentAirQuality(ctx, lat, lon)
		if err != nil {
			if logger != nil {
				logger.Debug("air quality source failed",
					zap.String("source", p.Name()),
					zap.String("category", string(client.CategorizeError(err))),
					zap.Error(err))
			}
			continue
		}
		if v := usablePM25(reading.PM25); v != nil {
			pm25 = v
		}
		if reading.Index == nil {
			if logger != nil {
				logger.Debug("air quality source had no index", zap.String("source", p.Name()))
			}
			continue
		}
		index, ok := classify.ValidAQI(*reading.Index)
		if !ok {
			if logger != nil {
				logger.Debug("air quality index out of range", zap.String("source", p.Name()), zap.Float64("index", *reading.Index))
			}
			continue
		}

		category, _ := classify.AQICategory(index)
		observability.RecordAirQualitySource(p.Name())
		return &models.AirQuality{
			Index:    index,
			PM25:     pm25,
			Category: category,
			Source:   p.Name(),
		}
	}

	observability.RecordAirQualitySource(SourceUnavailable)
	if logger != nil {
		logger.Info("air quality unavailable", zap.Float64("latitude", lat), zap.Float64("longitude", lon))
	}
	return nil
}

func usablePM25(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return nil
	}
	out := *v
	return &out
}

// breakerProvider routes a provider through a circuit breaker. Only transport
// and status errors count as failures; an empty reading does not.
type breakerProvider struct {
	client.AirQualityProvider
	cb *circuitbreaker.CircuitBreaker
}

// WithCircuitBreaker wraps p so that an open breaker fails fast with circuitbreaker.ErrOpen.
func WithCircuitBreaker(p client.AirQualityProvider, cb *circuitbreaker.CircuitBreaker) client.AirQualityProvider {
	return &breakerProvider{AirQualityProvider: p, cb: cb}
}

func (b *breakerProvider) CurrentAirQuality(ctx context.Context, lat, lon float64) (models.AirQualityReading, error) {
	var reading models.AirQualityReading
	err := b.cb.Call(ctx, func() error {
		var err error
		reading, err = b.AirQualityProvider.CurrentAirQuality(ctx, lat, lon)
		return err
	})
	return reading, err
}
