// Package openweathermap reads daily forecasts and historical samples from
// the OpenWeatherMap One Call 3.0 API.
package openweathermap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/fetch"
)

// DefaultBaseURL is the One Call 3.0 root.
const DefaultBaseURL = "https://api.openweathermap.org/data/3.0"

// TimestampLayout renders Unix times in the forecast CSV.
const TimestampLayout = "2006-01-02 15:04:05"

// ErrCircuitOpen is returned while the breaker rejects calls after repeated failures.
var ErrCircuitOpen = errors.New("openweathermap circuit open")

// Getter is the subset of fetch.Fetcher the client needs.
type Getter interface {
	Get(ctx context.Context, url string) (fetch.Result, error)
}

// Client calls One Call endpoints for a single API key.
type Client struct {
	getter  Getter
	baseURL string
	apiKey  string
	loc     *time.Location
	circuit *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates a client. Timestamps are rendered in UTC.
func NewClient(getter Getter, baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		getter:  getter,
		baseURL: baseURL,
		apiKey:  apiKey,
		loc:     time.UTC,
		circuit: cb,
		logger:  logger,
	}
}

// Forecast returns the daily forecast rows for one city. Days lacking a
// weather description are dropped.
func (c *Client) Forecast(ctx context.Context, city string, pos domain.CityCoordinates) ([]domain.ForecastRow, error) {
	params := c.params(pos)
	params.Set("exclude", "current,minutely,hourly,alerts")

	body, err := c.get(ctx, c.baseURL+"/onecall?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var payload struct {
		Daily []daily `json:"daily"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode forecast for %s: %w", city, err)
	}

	rows := make([]domain.ForecastRow, 0, len(payload.Daily))
	for _, d := range payload.Daily {
		if len(d.Weather) == 0 {
			c.logger.Warn("forecast day without weather", "city", city, "dt", d.Dt)
			continue
		}
		rows = append(rows, domain.ForecastRow{
			Dt:          c.timestamp(d.Dt),
			Sunrise:     c.timestamp(d.Sunrise),
			Sunset:      c.timestamp(d.Sunset),
			Temp:        d.Temp.Day,
			FeelsLike:   d.FeelsLike.Day,
			Pressure:    d.Pressure,
			Humidity:    d.Humidity,
			DewPoint:    d.DewPoint,
			Clouds:      d.Clouds,
			WindSpeed:   d.WindSpeed,
			WindDeg:     d.WindDeg,
			Rain:        d.Rain,
			Snow:        d.Snow,
			City:        city,
			Lat:         float64(pos.Lat),
			Lon:         float64(pos.Lon),
			WeatherMain: d.Weather[0].Main,
			WeatherDesc: d.Weather[0].Description,
		})
	}
	return rows, nil
}

// History returns the samples recorded around at for one city, as a
// single-city fragment ready for merging.
func (c *Client) History(ctx context.Context, city string, pos domain.CityCoordinates, at time.Time) (domain.CityWeatherSet, error) {
	params := c.params(pos)
	params.Set("dt", strconv.FormatInt(at.Unix(), 10))

	body, err := c.get(ctx, c.baseURL+"/onecall/timemachine?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []domain.Observation `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode history for %s: %w", city, err)
	}

	return domain.CityWeatherSet{
		city: {Lat: pos.Lat, Lon: pos.Lon, Data: payload.Data},
	}, nil
}

func (c *Client) params(pos domain.CityCoordinates) url.Values {
	return url.Values{
		"lat":   {strconv.FormatFloat(float64(pos.Lat), 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(float64(pos.Lon), 'f', -1, 64)},
		"units": {"metric"},
		"APPID": {c.apiKey},
	}
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("OPENWEATHERMAP_KEY: %w", domain.ErrMissingCredentials)
	}

	out, err := c.circuit.Execute(func() (interface{}, error) {
		res, err := c.getter.Get(ctx, u)
		if err != nil {
			return nil, err
		}
		return res.Body, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) timestamp(unix int64) string {
	return time.Unix(unix, 0).In(c.loc).Format(TimestampLayout)
}

// One Call daily entry. Rain and snow are omitted on dry days.
type daily struct {
	Dt        int64   `json:"dt"`
	Sunrise   int64   `json:"sunrise"`
	Sunset    int64   `json:"sunset"`
	Pressure  float64 `json:"pressure"`
	Humidity  float64 `json:"humidity"`
	DewPoint  float64 `json:"dew_point"`
	Clouds    float64 `json:"clouds"`
	WindSpeed float64 `json:"wind_speed"`
	WindDeg   float64 `json:"wind_deg"`
	Rain      float64 `json:"rain"`
	Snow      float64 `json:"snow"`
	Temp      struct {
		Day float64 `json:"day"`
	} `json:"temp"`
	FeelsLike struct {
		Day float64 `json:"day"`
	} `json:"feels_like"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}
