package classify

import "github.com/kjstillabower/city-weather/internal/models"

// Unknown is the description for any weather code outside the table.
const Unknown = "Unknown"

// weatherCodes maps WMO weather codes to descriptions.
var weatherCodes = map[int]string{
	0:  "Clear Sky",
	1:  "Mainly Clear",
	2:  "Partly Cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Foggy",
	51: "Light Drizzle",
	53: "Moderate Drizzle",
	55: "Heavy Drizzle",
	61: "Slight Rain",
	63: "Moderate Rain",
	65: "Heavy Rain",
	71: "Slight Snow",
	73: "Moderate Snow",
	75: "Heavy Snow",
	80: "Slight Rain Showers",
	81: "Moderate Rain Showers",
	82: "Heavy Rain Showers",
	85: "Slight Snow Showers",
	86: "Heavy Snow Showers",
	95: "Thunderstorm",
	96: "Thunderstorm with Hail",
	99: "Thunderstorm with Hail",
}

type appearance struct {
	icon  string
	color string
}

var appearances = map[string]appearance{
	"Clear Sky":              {"☀️", "#FFD700"},
	"Mainly Clear":           {"🌤️", "#FFD700"},
	"Partly Cloudy":          {"⛅", "#87CEEB"},
	"Overcast":               {"☁️", "#B8B8B8"},
	"Foggy":                  {"🌫️", "#C0C0C0"},
	"Light Drizzle":          {"🌦️", "#87CEEB"},
	"Moderate Drizzle":       {"🌧️", "#4682B4"},
	"Heavy Drizzle":          {"⛈️", "#1E90FF"},
	"Slight Rain":            {"🌧️", "#4682B4"},
	"Moderate Rain":          {"🌧️", "#1E90FF"},
	"Heavy Rain":             {"⛈️", "#0047AB"},
	"Slight Snow":            {"🌨️", "#F0FFFF"},
	"Moderate Snow":          {"🌨️", "#E8E8E8"},
	"Heavy Snow":             {"❄️", "#F5F5F5"},
	"Slight Rain Showers":    {"🌧️", "#4682B4"},
	"Moderate Rain Showers":  {"🌧️", "#1E90FF"},
	"Heavy Rain Showers":     {"⛈️", "#0047AB"},
	"Slight Snow Showers":    {"🌨️", "#F0FFFF"},
	"Heavy Snow Showers":     {"❄️", "#F5F5F5"},
	"Thunderstorm":           {"⛈️", "#FF6B35"},
	"Thunderstorm with Hail": {"⛈️", "#FF6B35"},
	Unknown:                  {"🌤️", "#87CEEB"},
}

// Describe returns the description for a weather code, or Unknown.
func Describe(code int) string {
	if d, ok := weatherCodes[code]; ok {
		return d
	}
	return Unknown
}

// Appearance returns the icon glyph and color for a description.
// Descriptions without an entry get the Unknown pair.
func Appearance(description string) (icon, color string) {
	a, ok := appearances[description]
	if !ok {
		a = appearances[Unknown]
	}
	return a.icon, a.color
}

// Classify maps a weather code to its description and display pair.
func Classify(code int) models.Condition {
	desc := Describe(code)
	icon, color := Appearance(desc)
	return models.Condition{
		Code:        code,
		Description: desc,
		Icon:        icon,
		Color:       color,
	}
}

// KnownCodes returns the codes present in the table, in no particular order.
func KnownCodes() []int {
	codes := make([]int, 0, len(weatherCodes))
	for c := range weatherCodes {
		codes = append(codes, c)
	}
	return codes
}
