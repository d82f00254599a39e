package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/fetch"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
)

// Feature table columns.
const (
	ColumnDate      = "Date"
	ColumnLiveTime  = "time"
	ColumnSolarDate = domain.DateColumn
)

// ErrMissingColumn is returned when a feature table lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// ErrNoRows is returned when there is nothing to score.
var ErrNoRows = errors.New("no rows to score")

// weatherIgnored lists forecast columns left out of the daily means.
var weatherIgnored = map[string]bool{"lat": true, "lon": true}

// Getter downloads a URL.
type Getter interface {
	Get(ctx context.Context, url string) (fetch.Result, error)
}

// Scorer returns one model prediction per feature row.
type Scorer interface {
	Predict(ctx context.Context, f domain.Frame) ([]float64, error)
}

// BandSource loads the error bands logged with a model version.
type BandSource interface {
	ErrorBands(ctx context.Context, model, alias string) (domain.ErrorBands, error)
}

// Predictor builds the feature table and scores it.
type Predictor struct {
	getter  Getter
	store   domain.ObjectStore
	scorer  Scorer
	bands   BandSource
	markers *Markers
	model   string
	alias   string
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// PredictorConfig names the model whose error bands are attached.
type PredictorConfig struct {
	Model string
	Alias string
}

// NewPredictor creates a predictor.
func NewPredictor(getter Getter, store domain.ObjectStore, scorer Scorer, bands BandSource, markers *Markers, cfg PredictorConfig, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Predictor {
	return &Predictor{
		getter:  getter,
		store:   store,
		scorer:  scorer,
		bands:   bands,
		markers: markers,
		model:   cfg.Model,
		alias:   cfg.Alias,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// PrepData downloads the solar prediction table and the weather forecast
// CSV, joins them by day and stores the result as the scoring input.
func (p *Predictor) PrepData(ctx context.Context, solarURL, weatherURL string) (domain.Frame, error) {
	var solar, weather domain.Frame
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := p.download(gctx, solarURL)
		solar = f
		return err
	})
	g.Go(func() error {
		f, err := p.download(gctx, weatherURL)
		weather = f
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Frame{}, err
	}

	features, err := JoinFeatures(DailyWeatherMeans(weather), solar)
	if err != nil {
		return domain.Frame{}, err
	}
	if err := writeFrame(ctx, p.store, KeyPredictionInput, &features); err != nil {
		return domain.Frame{}, err
	}
	p.logger.Info("feature table stored", "object", KeyPredictionInput, "rows", len(features.Rows))
	return features, nil
}

func (p *Predictor) download(ctx context.Context, u string) (domain.Frame, error) {
	res, err := p.getter.Get(ctx, u)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("download %s: %w", u, err)
	}
	f, err := domain.ReadFrame(bytes.NewReader(res.Body), ',')
	if err != nil {
		return domain.Frame{}, fmt.Errorf("decode %s: %w", u, err)
	}
	return f, nil
}

// Predict scores the stored feature table, attaches the error band of each
// prediction, stores the result and advances the prediction marker.
func (p *Predictor) Predict(ctx context.Context) (domain.Prediction, error) {
	features, err := readFrame(ctx, p.store, KeyPredictionInput)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("read feature table: %w", err)
	}
	dates := features.Column(ColumnDate)
	if dates == nil {
		return domain.Prediction{}, fmt.Errorf("feature table: %w %q", ErrMissingColumn, ColumnDate)
	}

	preds, err := p.score(ctx, features)
	if err != nil {
		return domain.Prediction{}, err
	}
	bands, err := p.bands.ErrorBands(ctx, p.model, p.alias)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("load error bands of %s@%s: %w", p.model, p.alias, err)
	}

	out := domain.Prediction{Date: dates, TCHSolairePred: preds, Error: make([]float64, len(preds))}
	for i, v := range preds {
		out.Error[i] = bands.StdFor(v)
	}

	table := predictionFrame(out)
	if err := writeFrame(ctx, p.store, KeyPredictionOutput, &table); err != nil {
		return domain.Prediction{}, err
	}
	if err := p.markers.Put(ctx, SourcePrediction, domain.TruncateDay(p.clock.Now())); err != nil {
		return domain.Prediction{}, fmt.Errorf("write prediction marker: %w", err)
	}
	p.logger.Info("prediction stored", "object", KeyPredictionOutput, "rows", len(preds))
	return out, nil
}

// PredictLive scores an uploaded feature table. Its time column is dropped.
func (p *Predictor) PredictLive(ctx context.Context, f domain.Frame) ([]float64, error) {
	if f.Index(ColumnLiveTime) < 0 {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, ColumnLiveTime)
	}
	f.DropColumn(ColumnLiveTime)
	return p.score(ctx, f)
}

func (p *Predictor) score(ctx context.Context, f domain.Frame) ([]float64, error) {
	if len(f.Rows) == 0 {
		return nil, ErrNoRows
	}
	start := p.clock.Now()
	preds, err := p.scorer.Predict(ctx, f)
	p.metrics.PredictionDuration.Observe(p.clock.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	return preds, nil
}

func predictionFrame(pred domain.Prediction) domain.Frame {
	f := domain.Frame{Columns: []string{"", ColumnDate, "TCH_solaire_pred", "Error"}}
	for i := range pred.TCHSolairePred {
		f.Rows = append(f.Rows, []string{
			strconv.Itoa(i),
			pred.Date[i],
			formatFloat(pred.TCHSolairePred[i]),
			formatFloat(pred.Error[i]),
		})
	}
	return f
}

// DailyWeatherMeans averages the numeric forecast columns of every city per
// day. The day is the date part of the dt column. A column is numeric when
// every non-empty cell parses; empty cells are left out of the mean.
func DailyWeatherMeans(weather domain.Frame) domain.Frame {
	dt := weather.Index("dt")
	if dt < 0 {
		return domain.Frame{Columns: []string{ColumnDate}}
	}

	var numeric []int
	for j, col := range weather.Columns {
		if j == dt || weatherIgnored[col] || !isNumericColumn(weather, j) {
			continue
		}
		numeric = append(numeric, j)
	}

	type acc struct {
		sum []float64
		n   []int
	}
	days := make(map[string]*acc)
	for _, row := range weather.Rows {
		day, _, _ := strings.Cut(row[dt], " ")
		if day == "" {
			continue
		}
		a, ok := days[day]
		if !ok {
			a = &acc{sum: make([]float64, len(numeric)), n: make([]int, len(numeric))}
			days[day] = a
		}
		for k, j := range numeric {
			if v, err := strconv.ParseFloat(row[j], 64); err == nil {
				a.sum[k] += v
				a.n[k]++
			}
		}
	}

	out := domain.Frame{Columns: []string{ColumnDate}}
	for _, j := range numeric {
		out.Columns = append(out.Columns, weather.Columns[j])
	}
	order := make([]string, 0, len(days))
	for day := range days {
		order = append(order, day)
	}
	sort.Strings(order)
	for _, day := range order {
		a := days[day]
		row := []string{day}
		for k := range numeric {
			if a.n[k] == 0 {
				row = append(row, "")
				continue
			}
			row = append(row, formatFloat(a.sum[k]/float64(a.n[k])))
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func isNumericColumn(f domain.Frame, j int) bool {
	seen := false
	for _, row := range f.Rows {
		if row[j] == "" {
			continue
		}
		if _, err := strconv.ParseFloat(row[j], 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// JoinFeatures inner-joins the daily weather means with the solar table on
// the day, keeping the weather row order.
func JoinFeatures(weather, solar domain.Frame) (domain.Frame, error) {
	sd := solar.Index(ColumnSolarDate)
	if sd < 0 {
		return domain.Frame{}, fmt.Errorf("solar table: %w %q", ErrMissingColumn, ColumnSolarDate)
	}
	bySolarDay := make(map[string][]string, len(solar.Rows))
	for _, row := range solar.Rows {
		bySolarDay[row[sd]] = row
	}

	out := domain.Frame{Columns: append([]string(nil), weather.Columns...)}
	for j, col := range solar.Columns {
		if j != sd {
			out.Columns = append(out.Columns, col)
		}
	}
	for _, row := range weather.Rows {
		srow, ok := bySolarDay[row[0]]
		if !ok {
			continue
		}
		joined := append([]string(nil), row...)
		for j, v := range srow {
			if j != sd {
				joined = append(joined, v)
			}
		}
		out.Rows = append(out.Rows, joined)
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
