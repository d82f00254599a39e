package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renergies99/solar-forecast-etl/internal/observability"
	"github.com/renergies99/solar-forecast-etl/internal/pipeline"
)

func TestNew_WiresDailyCollectors(t *testing.T) {
	t.Setenv("S3_ENDPOINT", "http://127.0.0.1:1")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	a, err := New(context.Background(), cfg, observability.NewLogger(cfg), observability.NewMetricsForTesting())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.Len(t, a.Collectors, 3)
	for src, c := range a.Collectors {
		assert.Equal(t, src, c.Source())
	}
	assert.Equal(t, pipeline.SourceSolarHistory, a.SolarHistory.Source())
	assert.Equal(t, pipeline.SourceWeatherHistory, a.WeatherHistory.Source())
	assert.NotNil(t, a.Predictor)
	assert.NotNil(t, a.Selector())
}

func TestCheckReadiness_StoreUnreachable(t *testing.T) {
	t.Setenv("S3_ENDPOINT", "http://127.0.0.1:1")
	t.Setenv("S3_USE_PATH_STYLE", "true")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_MAX_ATTEMPTS", "1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	a, err := New(context.Background(), cfg, observability.NewLogger(cfg), observability.NewMetricsForTesting())
	require.NoError(t, err)

	assert.Error(t, a.CheckReadiness(context.Background()))
}
