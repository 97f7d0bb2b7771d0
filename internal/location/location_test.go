package location

import (
	"errors"
	"strings"
	"testing"
)

func TestParse_Coordinates(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLat float64
		wantLon float64
	}{
		{"singapore", "1.29,103.85", 1.29, 103.85},
		{"sydney negative lat", "-33.8688,151.2093", -33.8688, 151.2093},
		{"integers", "0,0", 0, 0},
		{"whitespace around parts", " 1.29 , 103.85 ", 1.29, 103.85},
		{"extremes", "-90,180", -90, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if q.Kind != KindCoordinates {
				t.Fatalf("Parse(%q) kind = %v, want KindCoordinates", tt.input, q.Kind)
			}
			if q.Lat != tt.wantLat || q.Lon != tt.wantLon {
				t.Errorf("Parse(%q) = (%v, %v), want (%v, %v)", tt.input, q.Lat, q.Lon, tt.wantLat, tt.wantLon)
			}
		})
	}
}

func TestParse_CityName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trimmed", "  Singapore ", "Singapore"},
		{"with space", "New York", "New York"},
		{"hyphenated", "Winston-Salem", "Winston-Salem"},
		{"apostrophe", "N'Djamena", "N'Djamena"},
		{"abbreviated", "St. Louis", "St. Louis"},
		{"accents", "São Paulo", "São Paulo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if q.Kind != KindCity || q.City != tt.want {
				t.Errorf("Parse(%q) = %+v, want city %q", tt.input, q, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"single char city", "a"},
		{"digits only city", "123"},
		{"too long city", strings.Repeat("a", 101)},
		{"garbage", "??invalid??"},
		{"garbage with comma", "??invalid??,??"},
		{"punctuation in city", "Oslo!"},
		{"underscore in city", "new_york"},
		{"too many commas", "1.29,103.85,100"},
		{"non-numeric latitude", "north,103.85"},
		{"non-numeric longitude", "1.29,east"},
		{"latitude out of range", "91,0"},
		{"latitude below range", "-90.1,0"},
		{"longitude out of range", "0,181"},
		{"longitude below range", "0,-180.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidFormat", tt.input, err)
			}
		})
	}
}

func TestQuery_Key(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"city lowercased", "Singapore", "singapore"},
		{"coordinates fixed precision", "1.29,103.85", "1.2900,103.8500"},
		{"coordinates rounded", "1.299999,103.851111", "1.3000,103.8511"},
		{"negative coordinates", "-33.8688,151.2093", "-33.8688,151.2093"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got := q.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}
