package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/renergies99/solar-forecast-etl/internal/codec"
	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/merge"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
)

// WeatherProvider fetches forecasts and past samples for a position.
type WeatherProvider interface {
	Forecast(ctx context.Context, city string, pos domain.CityCoordinates) ([]domain.ForecastRow, error)
	History(ctx context.Context, city string, pos domain.CityCoordinates, at time.Time) (domain.CityWeatherSet, error)
}

// Locator resolves the configured cities to coordinates, going through the
// coordinate cache before the geocoder.
type Locator struct {
	geocoder domain.Geocoder
	cache    domain.CoordinateCache
	cities   []string
	country  string
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewLocator creates a locator for cities in country.
func NewLocator(geocoder domain.Geocoder, cache domain.CoordinateCache, cities []string, country string, logger *slog.Logger, metrics *observability.Metrics) *Locator {
	return &Locator{
		geocoder: geocoder,
		cache:    cache,
		cities:   cities,
		country:  country,
		logger:   logger,
		metrics:  metrics,
	}
}

// Coordinates returns the cached document verbatim when present. Otherwise
// each city is geocoded, failures are skipped, and a non-empty result is
// cached. Geocoded cities are keyed by the provider's name for the place.
func (l *Locator) Coordinates(ctx context.Context) (domain.Coordinates, error) {
	coords, err := l.cache.Get(ctx, KeyCities)
	if err == nil {
		l.logger.Debug("using cached coordinates", "cities", len(coords))
		return coords, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("read coordinate cache: %w", err)
	}

	coords = make(domain.Coordinates, len(l.cities))
	for _, city := range l.cities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := l.geocoder.ForwardGeocode(ctx, city, l.country)
		if err != nil {
			skip(l.logger, l.metrics, SourceOpenWeatherMap, "geocode_error", err, "city", city)
			continue
		}
		if !res.Found() {
			skip(l.logger, l.metrics, SourceOpenWeatherMap, "geocode_empty", errors.New("no match"), "city", city)
			continue
		}
		name := res.Name
		if name == "" {
			name = city
		}
		coords[name] = domain.CityCoordinates{Lat: domain.Coordinate(res.Lat), Lon: domain.Coordinate(res.Lon)}
	}

	if len(coords) == 0 {
		l.logger.Warn("no city could be geocoded, coordinates not cached")
		return coords, nil
	}
	if err := l.cache.Put(ctx, KeyCities, coords); err != nil {
		l.logger.Warn("write coordinate cache failed", "error", err)
	}
	return coords, nil
}

// sortedCities returns the city names in a stable order.
func sortedCities(coords domain.Coordinates) []string {
	names := make([]string, 0, len(coords))
	for name := range coords {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fatalWeatherError reports errors that make the remaining cities pointless.
func fatalWeatherError(err error) bool {
	return errors.Is(err, domain.ErrMissingCredentials) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// WeatherForecast stores the daily forecast of every located city as CSV
// and parquet.
type WeatherForecast struct {
	locator  *Locator
	provider WeatherProvider
	store    domain.ObjectStore
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewWeatherForecast creates the collector.
func NewWeatherForecast(locator *Locator, provider WeatherProvider, store domain.ObjectStore, logger *slog.Logger, metrics *observability.Metrics) *WeatherForecast {
	return &WeatherForecast{locator: locator, provider: provider, store: store, logger: logger, metrics: metrics}
}

func (w *WeatherForecast) Source() Source { return SourceOpenWeatherMap }

func (w *WeatherForecast) Collect(ctx context.Context, _ time.Time) (Report, error) {
	coords, err := w.locator.Coordinates(ctx)
	if err != nil {
		return Report{}, err
	}
	if len(coords) == 0 {
		return Report{}, errors.New("no city coordinates available")
	}

	report := Report{ObjectKey: KeyForecastCSV}
	var rows []domain.ForecastRow
	for _, city := range sortedCities(coords) {
		got, err := w.provider.Forecast(ctx, city, coords[city])
		if fatalWeatherError(err) {
			return Report{}, err
		}
		if err != nil {
			skip(w.logger, w.metrics, SourceOpenWeatherMap, reasonFor(err), err, "city", city)
			report.Skipped++
			continue
		}
		rows = append(rows, got...)
	}
	if len(rows) == 0 {
		return Report{}, fmt.Errorf("no forecast collected for %d cities", len(coords))
	}

	csvBody, err := codec.ForecastCSV(rows)
	if err != nil {
		return Report{}, err
	}
	if err := w.store.Put(ctx, KeyForecastCSV, csvBody, "text/csv"); err != nil {
		return Report{}, err
	}
	pq, err := codec.ForecastParquet(rows)
	if err != nil {
		return Report{}, err
	}
	if err := w.store.Put(ctx, KeyForecastParquet, pq, "application/vnd.apache.parquet"); err != nil {
		return Report{}, err
	}

	report.Rows = len(rows)
	return report, nil
}

// WeatherHistory collects past hourly samples for every located city,
// stores them as one fragment object per run and merges the fragment into
// the accumulated document.
type WeatherHistory struct {
	locator  *Locator
	provider WeatherProvider
	store    domain.ObjectStore
	days     int
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewWeatherHistory creates the collector. Each run requests days samples
// per city, one per day at noon UTC, walking back from yesterday.
func NewWeatherHistory(locator *Locator, provider WeatherProvider, store domain.ObjectStore, days int, logger *slog.Logger, metrics *observability.Metrics) *WeatherHistory {
	if days <= 0 {
		days = 1
	}
	return &WeatherHistory{locator: locator, provider: provider, store: store, days: days, logger: logger, metrics: metrics}
}

func (w *WeatherHistory) Source() Source { return SourceWeatherHistory }

func (w *WeatherHistory) Collect(ctx context.Context, today time.Time) (Report, error) {
	coords, err := w.locator.Coordinates(ctx)
	if err != nil {
		return Report{}, err
	}

	newest := domain.TruncateDay(today).AddDate(0, 0, -1).Add(12 * time.Hour)
	oldest := newest.AddDate(0, 0, -(w.days - 1))

	fragment := make(domain.CityWeatherSet, len(coords))
	report := Report{}
	for _, city := range sortedCities(coords) {
		pos := coords[city]
		fragment[city] = &domain.CityWeather{Lat: pos.Lat, Lon: pos.Lon, Data: []domain.Observation{}}
		for at := newest; !at.Before(oldest); at = at.AddDate(0, 0, -1) {
			got, err := w.provider.History(ctx, city, pos, at)
			if fatalWeatherError(err) {
				return Report{}, err
			}
			if err != nil {
				skip(w.logger, w.metrics, SourceWeatherHistory, reasonFor(err), err, "city", city, "day", domain.FormatDate(at))
				report.Skipped++
				continue
			}
			merge.CityWeather(fragment, got)
		}
	}

	key := FragmentKey(oldest, newest)
	if err := writeCityWeather(ctx, w.store, key, fragment); err != nil {
		return Report{}, err
	}
	w.logger.Info("weather fragment stored", "object", key)

	added, err := MergeWeather(ctx, w.store, key)
	if err != nil {
		return Report{}, err
	}
	report.ObjectKey = KeyWeatherMerged
	report.Rows = added
	return report, nil
}

// FragmentKey names the fragment covering [from, to].
func FragmentKey(from, to time.Time) string {
	return fmt.Sprintf("%sopenweathermap_%s_%s.json", KeyWeatherHistoryDir, domain.FormatDate(from), domain.FormatDate(to))
}

// MergeWeather folds the fragment objects under keys into the accumulated
// weather document and returns the number of observations added. Merging
// the same fragment twice adds nothing.
func MergeWeather(ctx context.Context, store domain.ObjectStore, keys ...string) (int, error) {
	merged, err := readCityWeather(ctx, store, KeyWeatherMerged)
	if err != nil {
		return 0, err
	}

	fragments := make([]domain.CityWeatherSet, 0, len(keys))
	for _, key := range keys {
		frag, err := store.Get(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("read fragment %s: %w", key, err)
		}
		set, err := decodeCityWeather(key, frag)
		if err != nil {
			return 0, err
		}
		fragments = append(fragments, set)
	}

	added := merge.CityWeather(merged, fragments...)
	if err := writeCityWeather(ctx, store, KeyWeatherMerged, merged); err != nil {
		return 0, err
	}
	return added, nil
}
