package conditions

import "testing"

func TestFromOpenWeatherCode(t *testing.T) {
	tests := []struct {
		name string
		code int
		want Condition
	}{
		{"clear sky", 800, Clear},
		{"few clouds", 801, PartlyCloudy},
		{"overcast", 804, Overcast},
		{"moderate rain", 501, ModerateRain},
		{"freezing rain", 511, FreezingRain},
		{"thunderstorm with rain", 201, ThunderstormWithRain},
		{"tornado maps to thunderstorm", 781, Thunderstorm},
		{"unmapped code", 999, Unknown},
		{"negative code", -1, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromOpenWeatherCode(tt.code); got != tt.want {
				t.Errorf("FromOpenWeatherCode(%d) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestFromWeatherAPICode(t *testing.T) {
	tests := []struct {
		name string
		code int
		want Condition
	}{
		{"sunny", 1000, Clear},
		{"partly cloudy", 1003, PartlyCloudy},
		{"blizzard", 1117, Blizzard},
		{"heavy rain", 1195, HeavyRain},
		{"snow with thunder", 1282, ThunderstormWithRain},
		{"unmapped code", 42, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromWeatherAPICode(tt.code); got != tt.want {
				t.Errorf("FromWeatherAPICode(%d) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestFromOpenMeteoCode(t *testing.T) {
	tests := []struct {
		name string
		code int
		want Condition
	}{
		{"clear", 0, Clear},
		{"partly cloudy", 2, PartlyCloudy},
		{"fog", 45, Fog},
		{"heavy snow", 75, HeavySnow},
		{"thunderstorm with hail", 96, ThunderstormWithHail},
		{"unmapped code", 50, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromOpenMeteoCode(tt.code); got != tt.want {
				t.Errorf("FromOpenMeteoCode(%d) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestConditionDescription(t *testing.T) {
	if got := PartlyCloudy.Description(); got != "Partly Cloudy" {
		t.Errorf("Description() = %q, want %q", got, "Partly Cloudy")
	}
	if got := Condition("bogus").Description(); got != "Unknown" {
		t.Errorf("Description() for unmapped condition = %q, want %q", got, "Unknown")
	}
}
