// Command scheduler triggers the daily loads and prediction on the API at
// the configured cron time.
//
// Usage:
//
//	go run ./cmd/scheduler [-once]
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/renergies99/solar-forecast-etl/internal/app"
	"github.com/renergies99/solar-forecast-etl/internal/fetch"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
	"github.com/renergies99/solar-forecast-etl/internal/scheduler"
)

func main() {
	once := flag.Bool("once", false, "run the update immediately and exit")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// The API runs collection inside the request, so calls wait for the
	// whole update rather than the usual fetch timeout.
	client := fetch.New(logger, metrics,
		fetch.WithMaxAttempts(cfg.FetchMaxAttempts),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithHTTPClient(&http.Client{Timeout: cfg.UpdateTimeout}),
	)
	updater := scheduler.NewUpdater(client, cfg.APIBaseURL, cfg.PublicBaseURL, clockwork.NewRealClock(), logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		runCtx, cancel := context.WithTimeout(ctx, cfg.UpdateTimeout)
		defer cancel()
		if err := updater.Run(runCtx); err != nil {
			logger.Error("update failed", "error", err)
			os.Exit(1)
		}
		return
	}

	s := scheduler.New(updater, cfg.ScheduleCron, cfg.UpdateTimeout, logger)
	if err := s.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	logger.Info("next update", "at", s.NextRun())

	<-ctx.Done()
	logger.Info("shutting down")
	s.Stop()
	logger.Info("shutdown complete")
}
