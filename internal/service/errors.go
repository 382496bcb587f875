package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCity blocks a lookup before any request is made.
	ErrInvalidCity = errors.New("invalid city name")
	// ErrCityNotFound means the geocoder returned no results; weather is never requested.
	ErrCityNotFound = errors.New("city not found")
)

// Lookup stages reported by RetrievalError.
const (
	StageGeocoding = "geocoding"
	StageWeather   = "weather"
)

// RetrievalError is any network, timeout or parse failure while geocoding or
// fetching weather. The message carries the underlying cause.
type RetrievalError struct {
	Stage string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
