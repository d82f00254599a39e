package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renergies99/solar-forecast-etl/internal/adapter/s3store"
	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
	"github.com/renergies99/solar-forecast-etl/internal/pipeline"
)

// --- mocks ---

type mockCollector struct {
	src    pipeline.Source
	report pipeline.Report
	err    error
	calls  int
	days   []time.Time
}

func (m *mockCollector) Source() pipeline.Source { return m.src }

func (m *mockCollector) Collect(_ context.Context, today time.Time) (pipeline.Report, error) {
	m.calls++
	m.days = append(m.days, today)
	return m.report, m.err
}

type mockPublisher struct {
	events []domain.IngestEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, events ...domain.IngestEvent) error {
	m.events = append(m.events, events...)
	return m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

var testNow = time.Date(2024, 6, 20, 5, 0, 0, 0, time.UTC)

func newTestPipeline(store domain.ObjectStore, pub domain.EventPublisher) *pipeline.Pipeline {
	return pipeline.New(pipeline.NewMarkers(store), pub, clockwork.NewFakeClockAt(testNow), testLogger(), newTestMetrics())
}

// --- tests ---

func TestPipeline_Load_HappyPath(t *testing.T) {
	store := s3store.NewMemoryStore()
	pub := &mockPublisher{}
	p := newTestPipeline(store, pub)
	c := &mockCollector{src: pipeline.SourceRTE, report: pipeline.Report{ObjectKey: pipeline.KeyRTE, Rows: 42}}

	status, err := p.Load(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Loaded, status)
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), c.days[0])

	marker, err := p.LastDownload(context.Background(), pipeline.SourceRTE)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-20", marker)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "rte", pub.events[0].Source)
	assert.Equal(t, pipeline.KeyRTE, pub.events[0].ObjectKey)
	assert.Equal(t, 42, pub.events[0].Rows)
	assert.Equal(t, "2024-06-20", pub.events[0].Day)
}

func TestPipeline_Load_AlreadyLoaded(t *testing.T) {
	store := s3store.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "public/prod/rte_last_download", []byte("2024-06-20"), "text/plain"))
	p := newTestPipeline(store, nil)
	c := &mockCollector{src: pipeline.SourceRTE}

	status, err := p.Load(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, pipeline.AlreadyLoaded, status)
	assert.Zero(t, c.calls)
}

func TestPipeline_Load_StaleMarker(t *testing.T) {
	store := s3store.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "public/solar/solar_last_download", []byte("2024-06-19\n"), "text/plain"))
	p := newTestPipeline(store, nil)
	c := &mockCollector{src: pipeline.SourceSolar}

	status, err := p.Load(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Loaded, status)
	assert.Equal(t, 1, c.calls)
}

func TestPipeline_Run_CollectError(t *testing.T) {
	store := s3store.NewMemoryStore()
	pub := &mockPublisher{}
	p := newTestPipeline(store, pub)
	c := &mockCollector{src: pipeline.SourceOpenWeatherMap, err: errors.New("upstream down")}

	err := p.Run(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect openweathermap")

	_, err = p.LastDownload(context.Background(), pipeline.SourceOpenWeatherMap)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, pub.events)
}

func TestPipeline_Run_PublishErrorIsNotFatal(t *testing.T) {
	store := s3store.NewMemoryStore()
	p := newTestPipeline(store, &mockPublisher{err: errors.New("broker unavailable")})

	err := p.Run(context.Background(), &mockCollector{src: pipeline.SourceSolar})
	require.NoError(t, err)
}

func TestMarkers(t *testing.T) {
	store := s3store.NewMemoryStore()
	m := pipeline.NewMarkers(store)
	ctx := context.Background()
	day := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)

	done, err := m.IsToday(ctx, pipeline.SourcePrediction, day)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, m.Put(ctx, pipeline.SourcePrediction, day))
	assert.Equal(t, "text/plain", store.ContentType("public/prediction/predi_last_download"))

	done, err = m.IsToday(ctx, pipeline.SourcePrediction, day)
	require.NoError(t, err)
	assert.True(t, done)

	_, err = m.Get(ctx, pipeline.Source("landsat"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarkerKey(t *testing.T) {
	tests := []struct {
		src  pipeline.Source
		want string
	}{
		{pipeline.SourceRTE, "public/prod/rte_last_download"},
		{pipeline.SourceOpenWeatherMap, "public/openweathermap/openweathermap_last_download"},
		{pipeline.SourceSolar, "public/solar/solar_last_download"},
		{pipeline.SourceSolarHistory, "public/solar/solar_history_last_download"},
		{pipeline.SourcePrediction, "public/prediction/predi_last_download"},
	}
	for _, tt := range tests {
		t.Run(string(tt.src), func(t *testing.T) {
			assert.Equal(t, tt.want, pipeline.MarkerKey(tt.src))
		})
	}
}
