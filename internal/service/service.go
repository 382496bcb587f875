package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/city-weather/internal/classify"
	"github.com/kjstillabower/city-weather/internal/client"
	"github.com/kjstillabower/city-weather/internal/models"
	"github.com/kjstillabower/city-weather/internal/observability"
	"github.com/kjstillabower/city-weather/internal/validation"
)

// Lookup outcomes, used as metric labels.
const (
	OutcomeSuccess        = "success"
	OutcomeInvalid        = "invalid"
	OutcomeNotFound       = "not_found"
	OutcomeRetrievalError = "retrieval_error"
)

// WeatherService runs the lookup pipeline: validate, geocode, fetch current
// weather, resolve air quality, classify. Stages run strictly in sequence.
type WeatherService struct {
	geocoder      client.Geocoder
	forecast      client.ForecastClient
	airQuality    *AirQualityResolver
	cityMaxLength int
	now           func() time.Time
}

// NewWeatherService creates a WeatherService. cityMaxLength bounds input length
// in runes (0 disables the bound).
func NewWeatherService(geocoder client.Geocoder, forecast client.ForecastClient, airQuality *AirQualityResolver, cityMaxLength int) *WeatherService {
	if airQuality == nil {
		airQuality = NewAirQualityResolver()
	}
	return &WeatherService{
		geocoder:      geocoder,
		forecast:      forecast,
		airQuality:    airQuality,
		cityMaxLength: cityMaxLength,
		now:           time.Now,
	}
}

// loggerFromContext extracts a zap.Logger from request context if present.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// Lookup resolves city and returns the full report. Errors are ErrInvalidCity,
// ErrCityNotFound or *RetrievalError. Air quality failures are never errors;
// they leave Report.AirQuality nil.
func (s *WeatherService) Lookup(ctx context.Context, city string) (models.Report, error) {
	start := time.Now()
	logger := loggerFromContext(ctx)

	name, err := validation.ValidateCity(city, s.cityMaxLength)
	if err != nil {
		observability.RecordLookup(OutcomeInvalid)
		return models.Report{}, fmt.Errorf("%w: %w", ErrInvalidCity, err)
	}

	loc, err := s.geocoder.Geocode(ctx, name)
	if err != nil {
		if errors.Is(err, client.ErrLocationNotFound) {
			observability.RecordLookup(OutcomeNotFound)
			if logger != nil {
				logger.Info("city not found", zap.String("city", name))
			}
			return models.Report{}, fmt.Errorf("%w: %w", ErrCityNotFound, err)
		}
		return models.Report{}, s.retrievalFailed(logger, StageGeocoding, name, err)
	}

	conditions, err := s.forecast.CurrentConditions(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return models.Report{}, s.retrievalFailed(logger, StageWeather, name, err)
	}

	aq := s.airQuality.Resolve(ctx, loc.Latitude, loc.Longitude)

	report := models.Report{
		Location:   loc,
		Conditions: conditions,
		Condition:  classify.Classify(conditions.WeatherCode),
		AirQuality: aq,
		QueriedAt:  s.now(),
	}

	observability.RecordLookup(OutcomeSuccess)
	if logger != nil {
		logger.Debug("lookup served",
			zap.String("city", name),
			zap.String("location", loc.Name),
			zap.Bool("air_quality", aq != nil),
			zap.Duration("duration", time.Since(start)))
	}
	return report, nil
}

func (s *WeatherService) retrievalFailed(logger *zap.Logger, stage, city string, err error) error {
	observability.RecordLookup(OutcomeRetrievalError)
	if logger != nil {
		logger.Warn("lookup failed",
			zap.String("stage", stage),
			zap.String("city", city),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err))
	}
	return &RetrievalError{Stage: stage, Err: err}
}
