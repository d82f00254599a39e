// Command collect runs one collection job outside the API, for backfills and
// batch jobs.
//
// Usage:
//
//	go run ./cmd/collect [-force] <job> [fragment keys...]
//
// Jobs: solar-history, weather-history, merge-weather, rte, openweathermap,
// solar. The daily jobs honor their last-download marker unless -force is
// set. merge-weather folds the named history fragments into the merged
// weather document.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/renergies99/solar-forecast-etl/internal/app"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
	"github.com/renergies99/solar-forecast-etl/internal/pipeline"
)

func main() {
	force := flag.Bool("force", false, "run even if the marker already holds today's date")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-force] <job> [fragment keys...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, observability.NewMetrics())
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := run(ctx, a, flag.Arg(0), flag.Args()[1:], *force); err != nil {
		logger.Error("job failed", "job", flag.Arg(0), "error", err)
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, job string, args []string, force bool) error {
	var c pipeline.Collector
	switch job {
	case "merge-weather":
		if len(args) == 0 {
			return errors.New("merge-weather needs at least one fragment key")
		}
		added, err := pipeline.MergeWeather(ctx, a.Store, args...)
		if err != nil {
			return err
		}
		a.Logger.Info("weather merged", "fragments", len(args), "observations_added", added)
		return nil
	case "solar-history":
		c = a.SolarHistory
	case "weather-history":
		c = a.WeatherHistory
	default:
		var ok bool
		if c, ok = a.Collectors[pipeline.Source(job)]; !ok {
			return fmt.Errorf("unknown job %q", job)
		}
	}

	if force {
		return a.Pipeline.Run(ctx, c)
	}
	status, err := a.Pipeline.Load(ctx, c)
	if err != nil {
		return err
	}
	if status == pipeline.AlreadyLoaded {
		a.Logger.Info("nothing to do", "job", job)
	}
	return nil
}
