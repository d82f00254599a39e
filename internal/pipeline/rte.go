package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/renergies99/solar-forecast-etl/internal/adapter/rte"
	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/merge"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
)

// GridExports downloads eCO2mix regional exports.
type GridExports interface {
	Archive(ctx context.Context, url string) (domain.Frame, error)
	Current(ctx context.Context, url string) (domain.Frame, error)
}

// GridCollector rebuilds the regional grid dataset from the definitive
// annual archives and the current-year export.
type GridCollector struct {
	exports     GridExports
	store       domain.ObjectStore
	archiveURLs []string
	currentURL  string
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewGridCollector creates the collector.
func NewGridCollector(exports GridExports, store domain.ObjectStore, archiveURLs []string, currentURL string, logger *slog.Logger, metrics *observability.Metrics) *GridCollector {
	return &GridCollector{
		exports:     exports,
		store:       store,
		archiveURLs: archiveURLs,
		currentURL:  currentURL,
		logger:      logger,
		metrics:     metrics,
	}
}

func (g *GridCollector) Source() Source { return SourceRTE }

// Collect skips unreadable archives but fails when the current export is
// unavailable. Today's partial rows are left out.
func (g *GridCollector) Collect(ctx context.Context, today time.Time) (Report, error) {
	report := Report{ObjectKey: KeyRTE}
	frames := make([]domain.Frame, 0, len(g.archiveURLs)+1)
	for _, u := range g.archiveURLs {
		f, err := g.exports.Archive(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return Report{}, ctx.Err()
			}
			skip(g.logger, g.metrics, SourceRTE, reasonFor(err), err, "url", u)
			report.Skipped++
			continue
		}
		frames = append(frames, f)
	}

	current, err := g.exports.Current(ctx, g.currentURL)
	if err != nil {
		return Report{}, err
	}
	frames = append(frames, rte.DropDate(current, domain.FormatDate(today)))

	out := rte.Transform(merge.Frames(frames...))
	if err := writeFrame(ctx, g.store, KeyRTE, &out); err != nil {
		return Report{}, err
	}
	report.Rows = len(out.Rows)
	return report, nil
}
