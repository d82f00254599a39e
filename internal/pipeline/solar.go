package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/renergies99/solar-forecast-etl/internal/bulletin"
	"github.com/renergies99/solar-forecast-etl/internal/codec"
	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/merge"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
)

// Bulletins downloads daily NOAA text products. A bulletin that was never
// published returns domain.ErrNotFound.
type Bulletins interface {
	Summary(ctx context.Context, day time.Time) (string, error)
	Prediction(ctx context.Context, day time.Time) (string, error)
}

// SolarHistory appends one row per activity summary to the stored history,
// from the day after the last stored row up to yesterday.
type SolarHistory struct {
	bulletins Bulletins
	store     domain.ObjectStore
	start     time.Time
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewSolarHistory creates the collector. start is the first day fetched
// when nothing is stored yet.
func NewSolarHistory(b Bulletins, store domain.ObjectStore, start time.Time, logger *slog.Logger, metrics *observability.Metrics) *SolarHistory {
	return &SolarHistory{bulletins: b, store: store, start: start, logger: logger, metrics: metrics}
}

func (s *SolarHistory) Source() Source { return SourceSolarHistory }

// Collect fetches every missing day independently. Absent, unreachable and
// malformed bulletins are logged and skipped.
func (s *SolarHistory) Collect(ctx context.Context, today time.Time) (Report, error) {
	table, err := readTable(ctx, s.store, KeySolarHistory)
	if err != nil {
		return Report{}, err
	}

	report := Report{ObjectKey: KeySolarHistory}
	var records []domain.DailyRecord
	for _, day := range merge.Days(merge.NextDate(&table, s.start), today) {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		rec, err := s.fetch(ctx, day)
		if err != nil {
			skip(s.logger, s.metrics, SourceSolarHistory, reasonFor(err), err, "day", domain.FormatDate(day))
			report.Skipped++
			continue
		}
		records = append(records, rec)
	}

	report.Rows = merge.AppendDaily(&table, records...)
	if report.Rows == 0 && table.Len() > 0 {
		return report, nil
	}
	if err := writeTable(ctx, s.store, KeySolarHistory, &table); err != nil {
		return Report{}, err
	}
	return report, nil
}

func (s *SolarHistory) fetch(ctx context.Context, day time.Time) (domain.DailyRecord, error) {
	text, err := s.bulletins.Summary(ctx, day)
	if err != nil {
		return domain.DailyRecord{}, err
	}
	b, err := bulletin.Parse(day, text)
	if err != nil {
		return domain.DailyRecord{}, err
	}
	if err := archiveRaw(ctx, s.store, day, "SGAS", text); err != nil {
		s.logger.Warn("archive raw bulletin failed", "day", domain.FormatDate(day), "error", err)
	}
	return b.Record(), nil
}

// SolarPrediction stores the 3-day prediction issued yesterday as the solar
// feature table used for scoring.
type SolarPrediction struct {
	bulletins Bulletins
	store     domain.ObjectStore
	logger    *slog.Logger
}

// NewSolarPrediction creates the collector.
func NewSolarPrediction(b Bulletins, store domain.ObjectStore, logger *slog.Logger) *SolarPrediction {
	return &SolarPrediction{bulletins: b, store: store, logger: logger}
}

func (s *SolarPrediction) Source() Source { return SourceSolar }

func (s *SolarPrediction) Collect(ctx context.Context, today time.Time) (Report, error) {
	issued := today.AddDate(0, 0, -1)
	text, err := s.bulletins.Prediction(ctx, issued)
	if err != nil {
		return Report{}, fmt.Errorf("prediction of %s: %w", domain.FormatDate(issued), err)
	}

	table, err := bulletin.ParsePrediction(text)
	if err != nil {
		return Report{}, fmt.Errorf("prediction of %s: %w", domain.FormatDate(issued), err)
	}
	if err := archiveRaw(ctx, s.store, issued, "daypre", text); err != nil {
		s.logger.Warn("archive raw bulletin failed", "day", domain.FormatDate(issued), "error", err)
	}
	if err := writeTable(ctx, s.store, KeySolarPrediction, &table); err != nil {
		return Report{}, err
	}
	return Report{ObjectKey: KeySolarPrediction, Rows: table.Len()}, nil
}

// archiveRaw keeps the bulletin text gzip-compressed under
// public/solar/raw/YYYYMMDD<product>.txt.gz.
func archiveRaw(ctx context.Context, store domain.ObjectStore, day time.Time, product, text string) error {
	body, err := codec.Gzip([]byte(text))
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s%s%s.txt.gz", KeySolarRawPrefix, day.UTC().Format("20060102"), product)
	return store.Put(ctx, key, body, "application/gzip")
}
