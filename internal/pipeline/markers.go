package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

// Source names a stored dataset.
type Source string

const (
	SourceRTE            Source = "rte"
	SourceOpenWeatherMap Source = "openweathermap"
	SourceSolar          Source = "solar"
	SourceSolarHistory   Source = "solar_history"
	SourceWeatherHistory Source = "openweathermap_history"
	SourcePrediction     Source = "predi"
)

// Object keys of the stored datasets.
const (
	KeySolarHistory      = "public/solar/raw_solar_data.csv"
	KeySolarPrediction   = "public/solar/predi_data.csv"
	KeySolarRawPrefix    = "public/solar/raw/"
	KeyCities            = "cities.json"
	KeyWeatherPrefix     = "public/openweathermap/"
	KeyForecastCSV       = "public/openweathermap/openweathermap_forecasts.csv"
	KeyForecastParquet   = "public/openweathermap/openweathermap_forecasts.parquet"
	KeyWeatherMerged     = "public/openweathermap/merge_openweathermap.json"
	KeyWeatherHistoryDir = "public/openweathermap/history/"
	KeyRTE               = "public/prod/eCO2mix_RTE_Auvergne-Rhone-Alpes.csv"
	KeyPredictionInput   = "public/prediction/data_compile_predi.csv"
	KeyPredictionOutput  = "public/prediction/pred_tch_solaire_rhone_alpes.csv"
)

var markerPrefixes = map[Source]string{
	SourceRTE:            "public/prod/",
	SourceOpenWeatherMap: "public/openweathermap/",
	SourceSolar:          "public/solar/",
	SourceSolarHistory:   "public/solar/",
	SourceWeatherHistory: "public/openweathermap/",
	SourcePrediction:     "public/prediction/",
}

// MarkerKey returns the object key of src's last-download marker.
func MarkerKey(src Source) string {
	return markerPrefixes[src] + string(src) + "_last_download"
}

// Markers reads and writes last-download markers: bare YYYY-MM-DD objects.
type Markers struct {
	store domain.ObjectStore
}

// NewMarkers creates a marker store on store.
func NewMarkers(store domain.ObjectStore) *Markers {
	return &Markers{store: store}
}

// Get returns the marker text. A missing marker returns domain.ErrNotFound.
func (m *Markers) Get(ctx context.Context, src Source) (string, error) {
	if _, ok := markerPrefixes[src]; !ok {
		return "", fmt.Errorf("unknown source %q: %w", src, domain.ErrNotFound)
	}
	body, err := m.store.Get(ctx, MarkerKey(src))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// Put records day as the last download of src.
func (m *Markers) Put(ctx context.Context, src Source, day time.Time) error {
	return m.store.Put(ctx, MarkerKey(src), []byte(domain.FormatDate(day)), "text/plain")
}

// IsToday reports whether src was already downloaded on today. A missing
// marker is not an error.
func (m *Markers) IsToday(ctx context.Context, src Source, today time.Time) (bool, error) {
	got, err := m.Get(ctx, src)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return got == domain.FormatDate(today), nil
}
