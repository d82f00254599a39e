package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Coordinate is a latitude or longitude. Nominatim returns them as quoted
// strings, so both JSON numbers and numeric strings are accepted.
type Coordinate float64

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse coordinate %q: %w", s, err)
		}
		*c = Coordinate(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = Coordinate(v)
	return nil
}

// CityCoordinates is a geocoded city position.
type CityCoordinates struct {
	Lat Coordinate `json:"lat"`
	Lon Coordinate `json:"lon"`
}

// Coordinates maps a city name to its position. This is the JSON document
// cached under public/openweathermap/cities.json.
type Coordinates map[string]CityCoordinates

// Observation is one weather sample as returned by OpenWeatherMap. The raw
// JSON is kept verbatim so merges never lose provider fields; Dt identifies it.
type Observation struct {
	Dt  int64
	raw json.RawMessage
}

// NewObservation builds an observation from a raw provider payload.
func NewObservation(raw []byte) (Observation, error) {
	var o Observation
	if err := o.UnmarshalJSON(raw); err != nil {
		return Observation{}, err
	}
	return o, nil
}

func (o *Observation) UnmarshalJSON(b []byte) error {
	var head struct {
		Dt int64 `json:"dt"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return fmt.Errorf("decode observation: %w", err)
	}
	o.Dt = head.Dt
	o.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (o Observation) MarshalJSON() ([]byte, error) {
	if len(o.raw) == 0 {
		return json.Marshal(struct {
			Dt int64 `json:"dt"`
		}{o.Dt})
	}
	return o.raw, nil
}

// CityWeather holds a city's position and its accumulated observations.
type CityWeather struct {
	Lat  Coordinate    `json:"lat"`
	Lon  Coordinate    `json:"lon"`
	Data []Observation `json:"data"`
}

// CityWeatherSet maps a city name to its weather record. It grows
// monotonically as new fragments are merged in.
type CityWeatherSet map[string]*CityWeather

// ForecastRow is one flattened daily forecast for a city, the row shape of
// openweathermap_forecasts.csv and its parquet twin.
type ForecastRow struct {
	Dt          string  `json:"dt" parquet:"dt"`
	Sunrise     string  `json:"sunrise" parquet:"sunrise"`
	Sunset      string  `json:"sunset" parquet:"sunset"`
	Temp        float64 `json:"temp" parquet:"temp"`
	FeelsLike   float64 `json:"feels_like" parquet:"feels_like"`
	Pressure    float64 `json:"pressure" parquet:"pressure"`
	Humidity    float64 `json:"humidity" parquet:"humidity"`
	DewPoint    float64 `json:"dew_point" parquet:"dew_point"`
	Clouds      float64 `json:"clouds" parquet:"clouds"`
	WindSpeed   float64 `json:"wind_speed" parquet:"wind_speed"`
	WindDeg     float64 `json:"wind_deg" parquet:"wind_deg"`
	Rain        float64 `json:"rain" parquet:"rain"`
	Snow        float64 `json:"snow" parquet:"snow"`
	City        string  `json:"city" parquet:"city"`
	Lat         float64 `json:"lat" parquet:"lat"`
	Lon         float64 `json:"lon" parquet:"lon"`
	WeatherMain string  `json:"weather_main" parquet:"weather_main"`
	WeatherDesc string  `json:"weather_desc" parquet:"weather_desc"`
}

// ForecastColumns is the CSV header matching ForecastRow.Strings.
var ForecastColumns = []string{
	"dt", "sunrise", "sunset", "temp", "feels_like", "pressure", "humidity",
	"dew_point", "clouds", "wind_speed", "wind_deg", "rain", "snow", "city",
	"lat", "lon", "weather_main", "weather_desc",
}

// Strings renders the row in ForecastColumns order.
func (r ForecastRow) Strings() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		r.Dt, r.Sunrise, r.Sunset, f(r.Temp), f(r.FeelsLike), f(r.Pressure), f(r.Humidity),
		f(r.DewPoint), f(r.Clouds), f(r.WindSpeed), f(r.WindDeg), f(r.Rain), f(r.Snow), r.City,
		f(r.Lat), f(r.Lon), r.WeatherMain, r.WeatherDesc,
	}
}
