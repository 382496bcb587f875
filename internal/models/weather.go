package models

import "time"

// Location is a geocoded place. Produced per lookup, never persisted.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// CurrentConditions holds the current weather readings for a location.
type CurrentConditions struct {
	Temperature float64 `json:"temperature"` // °C
	WeatherCode int     `json:"weatherCode"`
	WindSpeed   float64 `json:"windSpeed"`
	Humidity    int     `json:"humidity"`    // %
	PressureMSL float64 `json:"pressureMsl"` // hPa
}

// Condition is a classified weather code.
type Condition struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

// AQICategory is one band of the air quality scale.
type AQICategory struct {
	Label      string `json:"label"`
	Min        int    `json:"min"`
	Max        int    `json:"max"`
	Color      string `json:"color"`
	Background string `json:"background"`
}

// AirQualityReading is what a single provider reported. Index is nil when the
// provider had no usable value.
type AirQualityReading struct {
	Index *float64
	PM25  *float64
}

// AirQuality is a resolved, validated air quality reading.
type AirQuality struct {
	Index    int         `json:"index"`
	PM25     *float64    `json:"pm25,omitempty"` // µg/m³
	Category AQICategory `json:"category"`
	Source   string      `json:"source"`
}

// Report is the result of one lookup, handed to display surfaces as-is.
// AirQuality is nil when no source produced a valid index.
type Report struct {
	Location   Location          `json:"location"`
	Conditions CurrentConditions `json:"conditions"`
	Condition  Condition         `json:"condition"`
	AirQuality *AirQuality       `json:"airQuality"`
	QueriedAt  time.Time         `json:"queriedAt"`
}
