// Package app builds the collaborators shared by the command binaries from
// one Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	kafkaadapter "github.com/renergies99/solar-forecast-etl/internal/adapter/kafka"
	"github.com/renergies99/solar-forecast-etl/internal/adapter/mlflow"
	"github.com/renergies99/solar-forecast-etl/internal/adapter/noaa"
	"github.com/renergies99/solar-forecast-etl/internal/adapter/nominatim"
	"github.com/renergies99/solar-forecast-etl/internal/adapter/openweathermap"
	redisadapter "github.com/renergies99/solar-forecast-etl/internal/adapter/redis"
	"github.com/renergies99/solar-forecast-etl/internal/adapter/rte"
	"github.com/renergies99/solar-forecast-etl/internal/adapter/s3store"
	"github.com/renergies99/solar-forecast-etl/internal/config"
	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/fetch"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
	"github.com/renergies99/solar-forecast-etl/internal/pipeline"
	"github.com/renergies99/solar-forecast-etl/internal/registry"
)

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.Load()
}

// App holds the wired collaborators.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Clock    clockwork.Clock
	Fetcher  *fetch.Fetcher
	Store    *s3store.Store
	Pipeline *pipeline.Pipeline
	Registry *mlflow.Client

	Predictor      *pipeline.Predictor
	SolarHistory   *pipeline.SolarHistory
	WeatherHistory *pipeline.WeatherHistory

	// Collectors are the daily loads served by the API, keyed by source.
	Collectors map[pipeline.Source]pipeline.Collector

	redis     *redisadapter.CoordinateCache
	publisher *kafkaadapter.Writer
}

// New connects the object store and builds every collector.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	store, err := s3store.New(ctx, s3store.Options{
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		Endpoint:     cfg.S3Endpoint,
		UsePathStyle: cfg.S3UsePathStyle,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Clock:   clockwork.NewRealClock(),
		Store:   store,
		Fetcher: fetch.New(logger, metrics,
			fetch.WithMaxAttempts(cfg.FetchMaxAttempts),
			fetch.WithUserAgent(cfg.UserAgent),
			fetch.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
		),
	}

	var publisher domain.EventPublisher
	if cfg.KafkaEnabled() {
		a.publisher = kafkaadapter.NewWriter(cfg, metrics, logger)
		publisher = a.publisher
		logger.Info("ingest events enabled", "topic", cfg.KafkaTopic)
	}

	markers := pipeline.NewMarkers(store)
	a.Pipeline = pipeline.New(markers, publisher, a.Clock, logger, metrics)
	a.Registry = mlflow.NewClient(a.Fetcher, cfg.MLflowTrackingURI, logger)

	bulletins := noaa.NewSource(a.Fetcher, cfg.NOAASummaryURL, cfg.NOAAPredictionURL)
	weather := openweathermap.NewClient(a.Fetcher, cfg.OpenWeatherMapURL, cfg.OpenWeatherMapKey, logger)
	locator := pipeline.NewLocator(a.geocoder(), a.coordinateCache(), cfg.Cities, cfg.Country, logger, metrics)

	a.SolarHistory = pipeline.NewSolarHistory(bulletins, store, cfg.SolarStartDate, logger, metrics)
	a.WeatherHistory = pipeline.NewWeatherHistory(locator, weather, store, cfg.WeatherHistoryDays, logger, metrics)
	a.Collectors = map[pipeline.Source]pipeline.Collector{
		pipeline.SourceRTE:            pipeline.NewGridCollector(rte.NewClient(a.Fetcher), store, cfg.RTEArchiveURLs, cfg.RTECurrentURL, logger, metrics),
		pipeline.SourceOpenWeatherMap: pipeline.NewWeatherForecast(locator, weather, store, logger, metrics),
		pipeline.SourceSolar:          pipeline.NewSolarPrediction(bulletins, store, logger),
	}

	a.Predictor = pipeline.NewPredictor(
		a.Fetcher, store, mlflow.NewScorer(a.Fetcher, cfg.ScoringURL), a.Registry, markers,
		pipeline.PredictorConfig{Model: cfg.ModelName, Alias: cfg.ModelAlias},
		a.Clock, logger, metrics,
	)
	return a, nil
}

// Selector returns an alias selector over the model registry.
func (a *App) Selector() *registry.Selector {
	return registry.NewSelector(a.Registry, a.Logger)
}

// CheckReadiness reports whether the object store, and Redis when
// configured, are reachable.
func (a *App) CheckReadiness(ctx context.Context) error {
	if err := a.Store.CheckReadiness(ctx); err != nil {
		return err
	}
	if a.redis != nil {
		return a.redis.CheckReadiness(ctx)
	}
	return nil
}

// Close releases the Kafka writer and Redis client.
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}

func (a *App) geocoder() domain.Geocoder {
	cfg := a.Config
	client := nominatim.NewClient(a.Fetcher, cfg.NominatimURL, cfg.NominatimRate, a.Metrics, a.Logger)
	return nominatim.NewCachedGeocoder(client, cfg.GeocodeCacheSize, a.Metrics)
}

// coordinateCache layers process memory, then Redis when configured, then
// the cities.json object next to the weather datasets.
func (a *App) coordinateCache() domain.CoordinateCache {
	layers := []pipeline.CacheLayer{{Name: "memory", Cache: pipeline.NewMemoryCache()}}
	if a.Config.RedisEnabled() {
		a.redis = redisadapter.NewCoordinateCache(
			redisadapter.NewClient(a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB),
			a.Config.RedisTTL,
		)
		layers = append(layers, pipeline.CacheLayer{Name: "redis", Cache: a.redis})
		a.Logger.Info("redis coordinate cache enabled", "addr", a.Config.RedisAddr)
	}
	layers = append(layers, pipeline.CacheLayer{
		Name:  "s3",
		Cache: s3store.NewCoordinateCache(a.Store, pipeline.KeyWeatherPrefix),
	})
	return pipeline.NewTieredCache(a.Logger, a.Metrics, layers...)
}
