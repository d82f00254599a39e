// Package nominatim implements domain.Geocoder on the OpenStreetMap
// Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/fetch"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Getter downloads a URL. The public instance rejects requests without a
// User-Agent, so the getter is expected to set one.
type Getter interface {
	Get(ctx context.Context, url string) (fetch.Result, error)
}

// Client implements domain.Geocoder. The public instance allows one request
// per second, so requests wait on a shared limiter before going through the
// getter, which backs off on 429.
type Client struct {
	getter  Getter
	baseURL string
	limiter *rate.Limiter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a Nominatim client issuing at most perSecond requests per second.
func NewClient(getter Getter, baseURL string, perSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		getter:  getter,
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// ForwardGeocode resolves "city,country" to the best matching place. An
// empty result with a nil error means no match.
func (c *Client) ForwardGeocode(ctx context.Context, city, country string) (domain.GeocodingResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.GeocodingResult{}, err
	}

	query := city
	if country != "" {
		query = fmt.Sprintf("%s,%s", city, country)
	}
	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}

	res, err := c.getter.Get(ctx, c.baseURL+"/search?"+params.Encode())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("geocode %q: %w", query, err)
	}

	var places []place
	if err := json.Unmarshal(res.Body, &places); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}
	if len(places) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		c.logger.Warn("no geocoding match", "query", query)
		return domain.GeocodingResult{}, nil
	}

	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return domain.GeocodingResult{
		Lat:         lat,
		Lon:         lon,
		Name:        p.Name,
		DisplayName: p.DisplayName,
	}, nil
}

// Nominatim search response item. Coordinates are returned as strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}
