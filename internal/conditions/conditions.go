package conditions

// Condition is the provider-agnostic weather state used to reconcile differing
// descriptions across providers.
type Condition string

const (
	Clear                Condition = "clear"
	PartlyCloudy         Condition = "partly_cloudy"
	Cloudy               Condition = "cloudy"
	Overcast             Condition = "overcast"
	Fog                  Condition = "fog"
	Mist                 Condition = "mist"
	LightRain            Condition = "light_rain"
	ModerateRain         Condition = "moderate_rain"
	HeavyRain            Condition = "heavy_rain"
	Drizzle              Condition = "drizzle"
	LightSnow            Condition = "light_snow"
	ModerateSnow         Condition = "moderate_snow"
	HeavySnow            Condition = "heavy_snow"
	Thunderstorm         Condition = "thunderstorm"
	ThunderstormWithRain Condition = "thunderstorm_with_rain"
	ThunderstormWithHail Condition = "thunderstorm_with_hail"
	RainShowers          Condition = "rain_showers"
	SnowShowers          Condition = "snow_showers"
	Sleet                Condition = "sleet"
	FreezingRain         Condition = "freezing_rain"
	Blizzard             Condition = "blizzard"
	Sandstorm            Condition = "sandstorm"
	Unknown              Condition = "unknown"
)

var descriptions = map[Condition]string{
	Clear:                "Clear Sky",
	PartlyCloudy:         "Partly Cloudy",
	Cloudy:               "Cloudy",
	Overcast:             "Overcast",
	Fog:                  "Fog",
	Mist:                 "Mist",
	LightRain:            "Light Rain",
	ModerateRain:         "Moderate Rain",
	HeavyRain:            "Heavy Rain",
	Drizzle:              "Drizzle",
	LightSnow:            "Light Snow",
	ModerateSnow:         "Moderate Snow",
	HeavySnow:            "Heavy Snow",
	Thunderstorm:         "Thunderstorm",
	ThunderstormWithRain: "Thunderstorm with Rain",
	ThunderstormWithHail: "Thunderstorm with Hail",
	RainShowers:          "Rain Showers",
	SnowShowers:          "Snow Showers",
	Sleet:                "Sleet",
	FreezingRain:         "Freezing Rain",
	Blizzard:             "Blizzard",
	Sandstorm:            "Sandstorm",
	Unknown:              "Unknown",
}

// Description returns the human-readable form of the condition.
func (c Condition) Description() string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	return descriptions[Unknown]
}

// openWeatherCodes maps OpenWeatherMap weather ids.
// Reference: https://openweathermap.org/weather-conditions
var openWeatherCodes = map[int]Condition{
	// Thunderstorm
	200: ThunderstormWithRain, // thunderstorm with light rain
	201: ThunderstormWithRain, // thunderstorm with rain
	202: ThunderstormWithRain, // thunderstorm with heavy rain
	210: Thunderstorm,         // light thunderstorm
	211: Thunderstorm,         // thunderstorm
	212: Thunderstorm,         // heavy thunderstorm
	221: Thunderstorm,         // ragged thunderstorm
	230: ThunderstormWithRain, // thunderstorm with light drizzle
	231: ThunderstormWithRain, // thunderstorm with drizzle
	232: ThunderstormWithRain, // thunderstorm with heavy drizzle

	// Drizzle
	300: Drizzle,     // light intensity drizzle
	301: Drizzle,     // drizzle
	302: Drizzle,     // heavy intensity drizzle
	310: Drizzle,     // light intensity drizzle rain
	311: Drizzle,     // drizzle rain
	312: Drizzle,     // heavy intensity drizzle rain
	313: RainShowers, // shower rain and drizzle
	314: RainShowers, // heavy shower rain and drizzle
	321: RainShowers, // shower drizzle

	// Rain
	500: LightRain,    // light rain
	501: ModerateRain, // moderate rain
	502: HeavyRain,    // heavy intensity rain
	503: HeavyRain,    // very heavy rain
	504: HeavyRain,    // extreme rain
	511: FreezingRain, // freezing rain
	520: RainShowers,  // light intensity shower rain
	521: RainShowers,  // shower rain
	522: RainShowers,  // heavy intensity shower rain
	531: RainShowers,  // ragged shower rain

	// Snow
	600: LightSnow,    // light snow
	601: ModerateSnow, // snow
	602: HeavySnow,    // heavy snow
	611: Sleet,        // sleet
	612: Sleet,        // light shower sleet
	613: Sleet,        // shower sleet
	615: LightSnow,    // light rain and snow
	616: ModerateSnow, // rain and snow
	620: SnowShowers,  // light shower snow
	621: SnowShowers,  // shower snow
	622: Blizzard,     // heavy shower snow

	// Atmosphere
	701: Mist,         // mist
	711: Fog,          // smoke
	721: Fog,          // haze
	731: Sandstorm,    // sand/dust whirls
	741: Fog,          // fog
	751: Sandstorm,    // sand
	761: Sandstorm,    // dust
	762: Sandstorm,    // volcanic ash
	771: RainShowers,  // squalls
	781: Thunderstorm, // tornado

	// Clear / clouds
	800: Clear,
	801: PartlyCloudy, // few clouds
	802: PartlyCloudy, // scattered clouds
	803: Cloudy,       // broken clouds
	804: Overcast,     // overcast clouds
}

// weatherAPICodes maps WeatherAPI condition codes.
// Reference: https://www.weatherapi.com/docs/weather_conditions.json
var weatherAPICodes = map[int]Condition{
	1000: Clear,
	1003: PartlyCloudy,
	1006: Cloudy,
	1009: Overcast,
	1030: Mist,
	1063: LightRain,    // patchy rain possible
	1066: LightSnow,    // patchy snow possible
	1069: Sleet,        // patchy sleet possible
	1072: FreezingRain, // patchy freezing drizzle possible
	1087: Thunderstorm, // thundery outbreaks possible
	1114: Blizzard,     // blowing snow
	1117: Blizzard,
	1135: Fog,
	1147: Fog, // freezing fog
	1150: Drizzle,
	1153: Drizzle,
	1168: FreezingRain,
	1171: FreezingRain,
	1180: LightRain,
	1183: LightRain,
	1186: ModerateRain,
	1189: ModerateRain,
	1192: HeavyRain,
	1195: HeavyRain,
	1198: FreezingRain,
	1201: FreezingRain,
	1204: Sleet,
	1207: Sleet,
	1210: LightSnow,
	1213: LightSnow,
	1216: ModerateSnow,
	1219: ModerateSnow,
	1222: HeavySnow,
	1225: HeavySnow,
	1237: Sleet, // ice pellets
	1240: RainShowers,
	1243: RainShowers,
	1246: RainShowers, // torrential rain shower
	1249: Sleet,
	1252: Sleet,
	1255: SnowShowers,
	1258: SnowShowers,
	1261: Sleet,
	1264: Sleet,
	1273: ThunderstormWithRain,
	1276: ThunderstormWithRain,
	1279: ThunderstormWithRain, // patchy light snow with thunder
	1282: ThunderstormWithRain, // moderate or heavy snow with thunder
}

// openMeteoCodes maps Open-Meteo WMO weather codes.
// Reference: https://open-meteo.com/en/docs
var openMeteoCodes = map[int]Condition{
	0:  Clear,
	1:  PartlyCloudy, // mainly clear
	2:  PartlyCloudy,
	3:  Overcast,
	45: Fog,
	48: Fog, // depositing rime fog
	51: Drizzle,
	53: Drizzle,
	55: Drizzle, // dense drizzle
	56: FreezingRain,
	57: FreezingRain,
	61: LightRain,
	63: ModerateRain,
	65: HeavyRain,
	66: FreezingRain,
	67: FreezingRain,
	71: LightSnow,
	73: ModerateSnow,
	75: HeavySnow,
	77: LightSnow, // snow grains
	80: RainShowers,
	81: RainShowers,
	82: RainShowers, // violent rain showers
	85: SnowShowers,
	86: SnowShowers,
	95: Thunderstorm,
	96: ThunderstormWithHail,
	99: ThunderstormWithHail,
}

// FromOpenWeatherCode maps an OpenWeatherMap weather id. Unmapped ids yield Unknown.
func FromOpenWeatherCode(code int) Condition {
	if c, ok := openWeatherCodes[code]; ok {
		return c
	}
	return Unknown
}

// FromWeatherAPICode maps a WeatherAPI condition code. Unmapped codes yield Unknown.
func FromWeatherAPICode(code int) Condition {
	if c, ok := weatherAPICodes[code]; ok {
		return c
	}
	return Unknown
}

// FromOpenMeteoCode maps an Open-Meteo WMO code. Unmapped codes yield Unknown.
func FromOpenMeteoCode(code int) Condition {
	if c, ok := openMeteoCodes[code]; ok {
		return c
	}
	return Unknown
}
