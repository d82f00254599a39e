// Package pipeline runs the collection steps that refresh the stored
// datasets, and the preparation and scoring steps that consume them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/fetch"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
)

// Collector refreshes one stored dataset.
type Collector interface {
	// Source names the dataset; it selects the last-download marker.
	Source() Source
	// Collect pulls upstream data up to today and writes the dataset.
	Collect(ctx context.Context, today time.Time) (Report, error)
}

// Report summarizes a completed collection.
type Report struct {
	ObjectKey string
	Rows      int
	Skipped   int
}

// Status is the outcome of Pipeline.Load.
type Status int

const (
	// Loaded means the collector ran and its marker was advanced.
	Loaded Status = iota
	// AlreadyLoaded means the marker already held today's date.
	AlreadyLoaded
)

// Pipeline wraps collectors with the once-a-day guard, markers, metrics and
// ingest events.
type Pipeline struct {
	markers   *Markers
	publisher domain.EventPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline. A nil publisher drops events.
func New(markers *Markers, publisher domain.EventPublisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if publisher == nil {
		publisher = domain.NopPublisher{}
	}
	return &Pipeline{
		markers:   markers,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Today returns the pipeline's current calendar day.
func (p *Pipeline) Today() time.Time {
	return domain.TruncateDay(p.clock.Now())
}

// Load runs c unless its marker already holds today's date.
func (p *Pipeline) Load(ctx context.Context, c Collector) (Status, error) {
	src := c.Source()
	today := p.Today()

	done, err := p.markers.IsToday(ctx, src, today)
	if err != nil {
		p.logger.Warn("read last-download marker failed", "source", src, "error", err)
	}
	if done {
		p.metrics.CollectorRuns.WithLabelValues(string(src), "skipped").Inc()
		p.logger.Info("already downloaded today", "source", src)
		return AlreadyLoaded, nil
	}

	if err := p.Run(ctx, c); err != nil {
		return Loaded, err
	}
	return Loaded, nil
}

// Run executes c unconditionally, then advances its marker and publishes an
// ingest event.
func (p *Pipeline) Run(ctx context.Context, c Collector) error {
	src := c.Source()
	today := p.Today()
	start := p.clock.Now()

	p.logger.Info("collection started", "source", src, "day", domain.FormatDate(today))
	report, err := c.Collect(ctx, today)
	p.metrics.CollectorDuration.WithLabelValues(string(src)).Observe(p.clock.Since(start).Seconds())
	if err != nil {
		p.metrics.CollectorRuns.WithLabelValues(string(src), "error").Inc()
		p.logger.Error("collection failed", "source", src, "error", err)
		return fmt.Errorf("collect %s: %w", src, err)
	}

	if err := p.markers.Put(ctx, src, today); err != nil {
		p.metrics.CollectorRuns.WithLabelValues(string(src), "error").Inc()
		return fmt.Errorf("write %s marker: %w", src, err)
	}

	p.metrics.CollectorRuns.WithLabelValues(string(src), "success").Inc()
	p.metrics.RowsAppended.WithLabelValues(string(src)).Add(float64(report.Rows))

	event := domain.IngestEvent{
		Source:      string(src),
		ObjectKey:   report.ObjectKey,
		Rows:        report.Rows,
		Day:         domain.FormatDate(today),
		CompletedAt: p.clock.Now().UTC(),
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("publish ingest event failed", "source", src, "error", err)
	}

	p.logger.Info("collection complete",
		"source", src,
		"object", report.ObjectKey,
		"rows", report.Rows,
		"skipped", report.Skipped,
	)
	return nil
}

// LastDownload returns the stored marker text for src.
func (p *Pipeline) LastDownload(ctx context.Context, src Source) (string, error) {
	return p.markers.Get(ctx, src)
}

// skip logs a per-item failure and counts it under reason.
func skip(logger *slog.Logger, metrics *observability.Metrics, src Source, reason string, err error, args ...any) {
	metrics.ItemsSkipped.WithLabelValues(string(src), reason).Inc()
	logger.Warn("skipping item", append([]any{"source", src, "reason", reason, "error", err}, args...)...)
}

// reasonFor classifies a per-item failure for the skipped-items metric.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "absent"
	case errors.Is(err, domain.ErrMalformedBulletin):
		return "malformed"
	case errors.Is(err, fetch.ErrRateLimited):
		return "rate_limited"
	default:
		return "fetch_error"
	}
}
