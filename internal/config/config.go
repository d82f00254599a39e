package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Default upstream locations.
const (
	DefaultNOAASummaryURL    = "https://www.ngdc.noaa.gov/stp/space-weather/swpc-products/daily_reports/solar_geophysical_activity_summaries"
	DefaultNOAAPredictionURL = "https://www.ngdc.noaa.gov/stp/space-weather/swpc-products/daily_reports/daypre"
	DefaultOpenWeatherMapURL = "https://api.openweathermap.org/data/3.0"
	DefaultNominatimURL      = "https://nominatim.openstreetmap.org"
	DefaultRTECurrentURL     = "https://eco2mix.rte-france.com/download/eco2mix/eCO2mix_RTE_Auvergne-Rhone-Alpes_En-cours-TR.zip"
	DefaultMLflowURI         = "https://renergies99lead-mlflow.hf.space"
	DefaultPublicBaseURL     = "https://renergies99-lead-bucket.s3.eu-west-3.amazonaws.com"
)

// DefaultRTEArchiveURLs are the definitive annual regional exports, oldest first.
var DefaultRTEArchiveURLs = []string{
	DefaultPublicBaseURL + "/public/prod/unzipped/regional/eCO2mix_RTE_Auvergne-Rh%C3%B4ne-Alpes_Annuel-Definitif_2021.xls",
	DefaultPublicBaseURL + "/public/prod/unzipped/regional/eCO2mix_RTE_Auvergne-Rh%C3%B4ne-Alpes_Annuel-Definitif_2022.xls",
	DefaultPublicBaseURL + "/public/prod/unzipped/regional/eCO2mix_RTE_Auvergne-Rh%C3%B4ne-Alpes_Annuel-Definitif_2023.xls",
	DefaultPublicBaseURL + "/public/prod/unzipped/regional/eCO2mix_RTE_Auvergne-Rh%C3%B4ne-Alpes_Annuel-Definitif_2024.xls",
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Object storage.
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3UsePathStyle bool
	PublicBaseURL  string

	// Upstream HTTP.
	FetchMaxAttempts int
	FetchTimeout     time.Duration
	UserAgent        string

	// Solar bulletins.
	NOAASummaryURL    string
	NOAAPredictionURL string
	SolarStartDate    time.Time

	// Weather and geocoding.
	OpenWeatherMapKey  string
	OpenWeatherMapURL  string
	NominatimURL       string
	NominatimRate      float64
	Cities             []string
	Country            string
	GeocodeCacheSize   int
	WeatherHistoryDays int

	// Optional Redis coordinate cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	// RTE grid data.
	RTECurrentURL  string
	RTEArchiveURLs []string

	// Model registry and serving.
	MLflowTrackingURI string
	ModelName         string
	ModelAlias        string
	ScoringURL        string

	// Optional ingest events.
	KafkaBrokers []string
	KafkaTopic   string

	// Scheduler.
	APIBaseURL    string
	ScheduleCron  string
	UpdateTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	fetchAttempts, err := parsePositiveInt("FETCH_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	historyDays, err := parsePositiveInt("WEATHER_HISTORY_DAYS", 1)
	if err != nil {
		return nil, err
	}
	updateTimeout, err := parseDuration("UPDATE_TIMEOUT", "30m")
	if err != nil {
		return nil, err
	}
	redisTTL, err := parseDuration("REDIS_TTL", "720h")
	if err != nil {
		return nil, err
	}
	redisDB, err := strconv.Atoi(sharedcfg.EnvOrDefault("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB")
	}

	nominatimRate, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("NOMINATIM_RATE", "1"), 64)
	if err != nil || nominatimRate <= 0 {
		return nil, errors.New("invalid NOMINATIM_RATE")
	}

	startDate, err := time.Parse("2006-01-02", sharedcfg.EnvOrDefault("SOLAR_START_DATE", "2020-01-01"))
	if err != nil {
		return nil, errors.New("invalid SOLAR_START_DATE")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		S3Bucket:       sharedcfg.EnvOrDefault("S3_BUCKET", "renergies99-lead-bucket"),
		S3Region:       sharedcfg.EnvOrDefault("AWS_REGION", "eu-west-3"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3UsePathStyle: os.Getenv("S3_USE_PATH_STYLE") == "true",
		PublicBaseURL:  strings.TrimRight(sharedcfg.EnvOrDefault("PUBLIC_BASE_URL", DefaultPublicBaseURL), "/"),

		FetchMaxAttempts: fetchAttempts,
		FetchTimeout:     fetchTimeout,
		UserAgent:        sharedcfg.EnvOrDefault("USER_AGENT", "solar-forecast-etl/1.0"),

		NOAASummaryURL:    sharedcfg.EnvOrDefault("NOAA_SUMMARY_URL", DefaultNOAASummaryURL),
		NOAAPredictionURL: sharedcfg.EnvOrDefault("NOAA_PREDICTION_URL", DefaultNOAAPredictionURL),
		SolarStartDate:    startDate,

		OpenWeatherMapKey: os.Getenv("OPENWEATHERMAP_KEY"),
		OpenWeatherMapURL: sharedcfg.EnvOrDefault("OPENWEATHERMAP_URL", DefaultOpenWeatherMapURL),
		NominatimURL:      sharedcfg.EnvOrDefault("NOMINATIM_URL", DefaultNominatimURL),
		NominatimRate:     nominatimRate,
		Cities:            splitList(sharedcfg.EnvOrDefault("WEATHER_CITIES", "Moulins,Aurillac,Saint-Etienne,Annecy,Nyons")),
		Country:           sharedcfg.EnvOrDefault("WEATHER_COUNTRY", "france"),
		GeocodeCacheSize:  parseCacheSize(),

		WeatherHistoryDays: historyDays,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		RedisTTL:      redisTTL,

		RTECurrentURL:  sharedcfg.EnvOrDefault("RTE_CURRENT_URL", DefaultRTECurrentURL),
		RTEArchiveURLs: DefaultRTEArchiveURLs,

		MLflowTrackingURI: strings.TrimRight(sharedcfg.EnvOrDefault("MLFLOW_TRACKING_URI", DefaultMLflowURI), "/"),
		ModelName:         sharedcfg.EnvOrDefault("MODEL_NAME", "SolarProdModel"),
		ModelAlias:        sharedcfg.EnvOrDefault("MODEL_ALIAS", "production"),
		ScoringURL:        strings.TrimRight(sharedcfg.EnvOrDefault("SCORING_URL", "http://localhost:5001"), "/"),

		KafkaTopic: sharedcfg.EnvOrDefault("KAFKA_TOPIC", "solar-etl-ingest"),

		APIBaseURL:   strings.TrimRight(sharedcfg.EnvOrDefault("API_BASE_URL", "http://localhost:8080"), "/"),
		ScheduleCron: sharedcfg.EnvOrDefault("SCHEDULE_CRON", "0 5 * * *"),

		UpdateTimeout: updateTimeout,
	}

	if v := os.Getenv("RTE_ARCHIVE_URLS"); v != "" {
		cfg.RTEArchiveURLs = splitList(v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(v)
	}

	if cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET is required")
	}
	if len(cfg.Cities) == 0 {
		return nil, errors.New("WEATHER_CITIES is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether ingest events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// RedisEnabled reports whether the Redis coordinate cache is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseCacheSize() int {
	if s := os.Getenv("GEOCODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
