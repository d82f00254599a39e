// Command promote compares two aliases of a registered model on a logged
// metric and points the target alias at the better version.
//
// Usage:
//
//	go run ./cmd/promote -a challenger -b production -metric mae -target production
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/renergies99/solar-forecast-etl/internal/app"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
)

func main() {
	model := flag.String("model", "", "registered model name (default MODEL_NAME)")
	aliasA := flag.String("a", "challenger", "first alias to compare")
	aliasB := flag.String("b", "production", "second alias to compare")
	metric := flag.String("metric", "mae", "logged metric deciding the winner")
	target := flag.String("target", "production", "alias to point at the winner")
	dryRun := flag.Bool("dry-run", false, "report the winner without moving the target alias")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *model == "" {
		*model = cfg.ModelName
	}
	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, logger, observability.NewMetrics())
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	sel := a.Selector()
	winner, err := sel.SelectBestAlias(ctx, *model, *aliasA, *aliasB, *metric)
	if err != nil {
		logger.Error("alias selection failed", "error", err)
		os.Exit(1)
	}
	logger.Info("best alias selected", "model", *model, "winner", winner, "metric", *metric)
	if *dryRun {
		return
	}

	mv, err := sel.Promote(ctx, *model, winner, *target)
	if err != nil {
		logger.Error("promotion failed", "error", err)
		os.Exit(1)
	}
	logger.Info("alias promoted", "model", *model, "alias", *target, "version", mv.Version)
}
