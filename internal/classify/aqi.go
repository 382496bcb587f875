package classify

import (
	"math"

	"github.com/kjstillabower/city-weather/internal/models"
)

// AQI scale bounds. Values outside [MinAQI, MaxAQI] are treated as absent.
const (
	MinAQI = 0
	MaxAQI = 500
)

// aqiCategories is ordered; the first inclusive match wins. Ranges are
// contiguous and cover [MinAQI, MaxAQI] exactly.
var aqiCategories = []models.AQICategory{
	{Label: "Good", Min: 0, Max: 50, Color: "#00E400", Background: "#E8F5E9"},
	{Label: "Fair", Min: 51, Max: 100, Color: "#FFFF00", Background: "#FFFDE7"},
	{Label: "Moderate", Min: 101, Max: 150, Color: "#FF7E00", Background: "#FFF3E0"},
	{Label: "Poor", Min: 151, Max: 200, Color: "#FF0000", Background: "#FFEBEE"},
	{Label: "Very Poor", Min: 201, Max: 300, Color: "#8F3F97", Background: "#F3E5F5"},
	{Label: "Severe", Min: 301, Max: 500, Color: "#7E0023", Background: "#FCE4EC"},
}

// UnknownCategory is returned when no band contains the index.
var UnknownCategory = models.AQICategory{
	Label:      Unknown,
	Min:        -1,
	Max:        -1,
	Color:      "#CCCCCC",
	Background: "#F5F5F5",
}

// Categories returns a copy of the ordered category table.
func Categories() []models.AQICategory {
	out := make([]models.AQICategory, len(aqiCategories))
	copy(out, aqiCategories)
	return out
}

// AQICategory returns the category whose inclusive range contains index.
// The second return is false, with UnknownCategory, when none does.
func AQICategory(index int) (models.AQICategory, bool) {
	for _, c := range aqiCategories {
		if c.Min <= index && index <= c.Max {
			return c, true
		}
	}
	return UnknownCategory, false
}

// ValidAQI converts a raw reported index into a scale value. NaN, infinities
// and anything outside [MinAQI, MaxAQI] are rejected. Fractions truncate.
func ValidAQI(raw float64) (int, bool) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, false
	}
	if raw < MinAQI || raw > MaxAQI {
		return 0, false
	}
	return int(raw), true
}
