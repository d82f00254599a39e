// Package noaa downloads the daily SWPC text products archived by NGDC.
package noaa

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/fetch"
)

// Product identifies a daily bulletin by its file suffix.
type Product string

const (
	// Summary is the Solar and Geophysical Activity Summary.
	Summary Product = "SGAS"
	// Prediction is the 3-day space weather prediction.
	Prediction Product = "daypre"
)

// Getter is the subset of fetch.Fetcher the source needs.
type Getter interface {
	Get(ctx context.Context, url string) (fetch.Result, error)
}

// Source resolves bulletin URLs under one archive root per product.
type Source struct {
	getter Getter
	roots  map[Product]string
}

// NewSource creates a source. summaryRoot and predictionRoot are the
// archive directories holding YYYY/MM/ subfolders.
func NewSource(getter Getter, summaryRoot, predictionRoot string) *Source {
	return &Source{
		getter: getter,
		roots: map[Product]string{
			Summary:    strings.TrimRight(summaryRoot, "/"),
			Prediction: strings.TrimRight(predictionRoot, "/"),
		},
	}
}

// URL returns the archive location of a product for day.
func (s *Source) URL(p Product, day time.Time) string {
	day = day.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%s%s.txt", s.roots[p], day.Year(), int(day.Month()), day.Format("20060102"), p)
}

// Bulletin downloads one bulletin. A bulletin that was never published
// returns domain.ErrNotFound.
func (s *Source) Bulletin(ctx context.Context, p Product, day time.Time) (string, error) {
	u := s.URL(p, day)
	res, err := s.getter.Get(ctx, u)
	var se *fetch.StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusForbidden) {
		return "", fmt.Errorf("%s: %w", u, domain.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return string(res.Body), nil
}

// Summary downloads the activity summary for day.
func (s *Source) Summary(ctx context.Context, day time.Time) (string, error) {
	return s.Bulletin(ctx, Summary, day)
}

// Prediction downloads the 3-day prediction issued on day.
func (s *Source) Prediction(ctx context.Context, day time.Time) (string, error) {
	return s.Bulletin(ctx, Prediction, day)
}
