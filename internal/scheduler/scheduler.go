// Package scheduler drives the daily data update through the API: refresh
// the weather forecast and the solar prediction, then prepare and score the
// feature table unless that already happened today.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/fetch"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
	"github.com/renergies99/solar-forecast-etl/internal/pipeline"
)

// Client is the subset of fetch.Fetcher the updater needs.
type Client interface {
	Get(ctx context.Context, url string) (fetch.Result, error)
	Post(ctx context.Context, url, contentType string, body []byte) (fetch.Result, error)
}

// Updater runs one daily update against the API at apiBaseURL.
type Updater struct {
	client        Client
	apiBaseURL    string
	publicBaseURL string
	clock         clockwork.Clock
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewUpdater creates an updater. publicBaseURL is the public address of the
// bucket holding the collected datasets.
func NewUpdater(client Client, apiBaseURL, publicBaseURL string, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Updater {
	return &Updater{
		client:        client,
		apiBaseURL:    apiBaseURL,
		publicBaseURL: publicBaseURL,
		clock:         clock,
		logger:        logger,
		metrics:       metrics,
	}
}

// Run refreshes both data sources concurrently. Prediction only runs when
// both refreshes succeeded.
func (u *Updater) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return u.load(gctx, "update_weather_data", "/load_openweathermap_forecasts") })
	g.Go(func() error { return u.load(gctx, "update_solar_data", "/load_solar_data") })
	if err := g.Wait(); err != nil {
		return err
	}
	return u.predict(ctx)
}

// load calls a /load_* route. Exhausted rate-limit retries are logged and
// treated as done.
func (u *Updater) load(ctx context.Context, job, path string) error {
	res, err := u.client.Get(ctx, u.apiBaseURL+path)
	if errors.Is(err, fetch.ErrRateLimited) {
		u.metrics.SchedulerJobs.WithLabelValues(job, "rate_limited").Inc()
		u.logger.Warn("update gave up after rate limiting", "job", job)
		return nil
	}
	if err != nil {
		u.metrics.SchedulerJobs.WithLabelValues(job, "error").Inc()
		return fmt.Errorf("%s: %w", job, err)
	}
	u.metrics.SchedulerJobs.WithLabelValues(job, "success").Inc()
	u.logger.Info("update done", "job", job, "response", string(res.Body))
	return nil
}

func (u *Updater) predict(ctx context.Context) error {
	const job = "generate_predict"

	done, err := u.predictedToday(ctx)
	if err != nil {
		u.metrics.SchedulerJobs.WithLabelValues(job, "error").Inc()
		return fmt.Errorf("%s: %w", job, err)
	}
	if done {
		u.metrics.SchedulerJobs.WithLabelValues(job, "skipped").Inc()
		u.logger.Info("prediction already done today")
		return nil
	}

	body, err := json.Marshal(map[string][]string{"urls": {
		u.publicBaseURL + "/" + pipeline.KeySolarPrediction,
		u.publicBaseURL + "/" + pipeline.KeyForecastCSV,
	}})
	if err != nil {
		return err
	}
	if _, err := u.client.Post(ctx, u.apiBaseURL+"/prep_data", "application/json", body); err != nil {
		u.metrics.SchedulerJobs.WithLabelValues(job, "error").Inc()
		return fmt.Errorf("%s: prep_data: %w", job, err)
	}
	res, err := u.client.Post(ctx, u.apiBaseURL+"/predict", "application/json", nil)
	if err != nil {
		u.metrics.SchedulerJobs.WithLabelValues(job, "error").Inc()
		return fmt.Errorf("%s: predict: %w", job, err)
	}
	u.metrics.SchedulerJobs.WithLabelValues(job, "success").Inc()
	u.logger.Info("prediction done", "response", string(res.Body))
	return nil
}

// predictedToday reads the prediction marker through the API. A missing
// marker means no prediction yet.
func (u *Updater) predictedToday(ctx context.Context) (bool, error) {
	res, err := u.client.Get(ctx, u.apiBaseURL+"/predi_last_download")
	var se *fetch.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var day string
	if err := json.Unmarshal(res.Body, &day); err != nil {
		return false, fmt.Errorf("decode prediction marker: %w", err)
	}
	return day == domain.FormatDate(u.clock.Now()), nil
}

// Scheduler runs the updater on a cron expression.
type Scheduler struct {
	scheduler *gocron.Scheduler
	updater   *Updater
	cron      string
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a scheduler evaluating cron in UTC. Each run is bounded by
// timeout.
func New(updater *Updater, cron string, timeout time.Duration, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		updater:   updater,
		cron:      cron,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the update job and starts the underlying scheduler. Runs
// stop being scheduled once ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Cron(s.cron).Do(func() {
		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		s.logger.Info("daily update started")
		if err := s.updater.Run(runCtx); err != nil {
			s.logger.Error("daily update failed", "error", err)
			return
		}
		s.logger.Info("daily update complete")
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.cron, err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "cron", s.cron)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// NextRun returns the time of the next scheduled run.
func (s *Scheduler) NextRun() time.Time {
	_, next := s.scheduler.NextRun()
	return next
}
