// Package location parses user-supplied location strings into either direct
// coordinates or a city name, and produces the canonical key used for caching
// and provider requests.
package location

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidFormat is returned for malformed, out-of-range, or empty input.
var ErrInvalidFormat = errors.New("invalid location format")

// ErrNotFound is returned by geocoders when a city name cannot be resolved.
var ErrNotFound = errors.New("location not found")

const (
	minCityNameLength = 2
	maxCityNameLength = 100

	latMin = -90.0
	latMax = 90.0
	lonMin = -180.0
	lonMax = 180.0
)

// Kind classifies a parsed query.
type Kind int

const (
	KindCity Kind = iota
	KindCoordinates
)

// Query is a validated location input: a city name or a coordinate pair.
type Query struct {
	Kind Kind
	City string
	Lat  float64
	Lon  float64
}

// Parse classifies and validates a raw location string. Exactly one comma with
// numeric values on both sides is treated as "lat,lon" coordinates; no comma is
// treated as a city name; anything else is ErrInvalidFormat.
func Parse(raw string) (Query, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Query{}, fmt.Errorf("%w: location is empty", ErrInvalidFormat)
	}

	switch strings.Count(s, ",") {
	case 0:
		if err := validateCityName(s); err != nil {
			return Query{}, err
		}
		return Query{Kind: KindCity, City: s}, nil
	case 1:
		lat, lon, err := parseCoordinates(s)
		if err != nil {
			return Query{}, err
		}
		return Query{Kind: KindCoordinates, Lat: lat, Lon: lon}, nil
	default:
		return Query{}, fmt.Errorf("%w: too many commas, use \"latitude,longitude\"", ErrInvalidFormat)
	}
}

// Key returns the normalized cache key: lowercased city name, or coordinates
// rounded to 4 decimal places as "lat,lon".
func (q Query) Key() string {
	if q.Kind == KindCoordinates {
		return fmt.Sprintf("%.4f,%.4f", q.Lat, q.Lon)
	}
	return strings.ToLower(q.City)
}

func validateCityName(s string) error {
	n := len([]rune(s))
	if n < minCityNameLength {
		return fmt.Errorf("%w: city name must be at least %d characters", ErrInvalidFormat, minCityNameLength)
	}
	if n > maxCityNameLength {
		return fmt.Errorf("%w: city name too long (max %d characters)", ErrInvalidFormat, maxCityNameLength)
	}
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsMark(r) {
			hasLetter = hasLetter || unicode.IsLetter(r)
			continue
		}
		switch r {
		case ' ', '-', '\'', '.':
			continue
		}
		return fmt.Errorf("%w: city name contains invalid character %q", ErrInvalidFormat, r)
	}
	if !hasLetter {
		return fmt.Errorf("%w: city name must contain at least one letter", ErrInvalidFormat)
	}
	return nil
}

func parseCoordinates(s string) (float64, float64, error) {
	parts := strings.SplitN(s, ",", 2)
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: latitude must be a number", ErrInvalidFormat)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: longitude must be a number", ErrInvalidFormat)
	}
	if lat < latMin || lat > latMax {
		return 0, 0, fmt.Errorf("%w: latitude %v out of range [%v, %v]", ErrInvalidFormat, lat, latMin, latMax)
	}
	if lon < lonMin || lon > lonMax {
		return 0, 0, fmt.Errorf("%w: longitude %v out of range [%v, %v]", ErrInvalidFormat, lon, lonMin, lonMax)
	}
	return lat, lon, nil
}

// Place is a forward-geocoding match for a city name.
type Place struct {
	Name    string
	Country string
	Lat     float64
	Lon     float64
}

// Geocoder resolves city names to coordinates. Implemented by the client
// package; providers that accept coordinates only depend on this interface.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (Place, error)
}
