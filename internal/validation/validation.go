package validation

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrCityEmpty is returned when the city name is empty or whitespace-only after trim.
var ErrCityEmpty = errors.New("city name is required")

// ErrCityTooLong is returned when the city name exceeds the maximum length.
var ErrCityTooLong = errors.New("city name too long")

// ErrCityControlChars is returned when the city name contains control characters.
var ErrCityControlChars = errors.New("city name contains control characters")

// ValidateCity normalizes the input to NFC, trims it, enforces maxLen (in runes,
// 0 disables) and rejects control characters. Any other name goes to the
// geocoder, which decides whether the place exists. Returns the cleaned name.
func ValidateCity(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(norm.NFC.String(input))
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrCityEmpty
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrCityTooLong
	}
	for _, c := range r {
		if unicode.IsControl(c) {
			return "", ErrCityControlChars
		}
	}
	return s, nil
}
