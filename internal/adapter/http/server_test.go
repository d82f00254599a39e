package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/renergies99/solar-forecast-etl/internal/adapter/http"
	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
	"github.com/renergies99/solar-forecast-etl/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockCollector struct{ src pipeline.Source }

func (m mockCollector) Source() pipeline.Source { return m.src }

func (m mockCollector) Collect(context.Context, time.Time) (pipeline.Report, error) {
	return pipeline.Report{}, nil
}

type mockLoader struct {
	markers map[pipeline.Source]string
	status  pipeline.Status
	err     error
	loaded  []pipeline.Source
}

func (m *mockLoader) Load(_ context.Context, c pipeline.Collector) (pipeline.Status, error) {
	m.loaded = append(m.loaded, c.Source())
	return m.status, m.err
}

func (m *mockLoader) LastDownload(_ context.Context, src pipeline.Source) (string, error) {
	day, ok := m.markers[src]
	if !ok {
		return "", fmt.Errorf("%s marker: %w", src, domain.ErrNotFound)
	}
	return day, nil
}

type mockPredictor struct {
	features domain.Frame
	pred     domain.Prediction
	live     []float64
	err      error
	urls     []string
	uploaded domain.Frame
}

func (m *mockPredictor) PrepData(_ context.Context, solarURL, weatherURL string) (domain.Frame, error) {
	m.urls = []string{solarURL, weatherURL}
	return m.features, m.err
}

func (m *mockPredictor) Predict(context.Context) (domain.Prediction, error) {
	return m.pred, m.err
}

func (m *mockPredictor) PredictLive(_ context.Context, f domain.Frame) ([]float64, error) {
	m.uploaded = f
	return m.live, m.err
}

func newTestServer(readyErr error, loader *mockLoader, predictor *mockPredictor) *httpadapter.Server {
	return httpadapter.NewServer(httpadapter.Options{
		Addr:      ":0",
		Ready:     &mockReadiness{err: readyErr},
		Loader:    loader,
		Predictor: predictor,
		Collectors: map[pipeline.Source]pipeline.Collector{
			pipeline.SourceRTE:            mockCollector{pipeline.SourceRTE},
			pipeline.SourceOpenWeatherMap: mockCollector{pipeline.SourceOpenWeatherMap},
			pipeline.SourceSolar:          mockCollector{pipeline.SourceSolar},
		},
		Metrics: observability.NewMetricsForTesting(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func serve(srv *httpadapter.Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	rec := serve(newTestServer(nil, &mockLoader{}, &mockPredictor{}), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var msg string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Contains(t, msg, "Hello world")
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil, &mockLoader{}, &mockPredictor{}), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	rec := serve(newTestServer(nil, &mockLoader{}, &mockPredictor{}), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(newTestServer(errors.New("not ready yet"), &mockLoader{}, &mockPredictor{}), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, &mockLoader{}, &mockPredictor{}), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLastDownload(t *testing.T) {
	loader := &mockLoader{markers: map[pipeline.Source]string{
		pipeline.SourceRTE:        "2024-06-20",
		pipeline.SourcePrediction: "2024-06-19",
	}}
	srv := newTestServer(nil, loader, &mockPredictor{})

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/rte_last_download", http.StatusOK, `"2024-06-20"`},
		{"/predi_last_download", http.StatusOK, `"2024-06-19"`},
		{"/solar_last_download", http.StatusNotFound, ""},
		{"/landsat_last_download", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(srv, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			if tt.want != "" {
				assert.JSONEq(t, tt.want, rec.Body.String())
			}
		})
	}
}

func TestLoad(t *testing.T) {
	loader := &mockLoader{}
	srv := newTestServer(nil, loader, &mockPredictor{})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/load_solar_data", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"source":"solar","status":"loaded"}`, rec.Body.String())

	loader.status = pipeline.AlreadyLoaded
	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/load_openweathermap_forecasts", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"source":"openweathermap","status":"already_loaded"}`, rec.Body.String())

	assert.Equal(t, []pipeline.Source{pipeline.SourceSolar, pipeline.SourceOpenWeatherMap}, loader.loaded)
}

func TestLoad_Errors(t *testing.T) {
	loader := &mockLoader{err: fmt.Errorf("collect openweathermap: %w", domain.ErrMissingCredentials)}
	rec := serve(newTestServer(nil, loader, &mockPredictor{}), httptest.NewRequest(http.MethodGet, "/load_openweathermap_data", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	loader.err = errors.New("collect rte: status 503")
	rec = serve(newTestServer(nil, loader, &mockPredictor{}), httptest.NewRequest(http.MethodGet, "/load_rte_data", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "status 503")
}

func TestPrepData(t *testing.T) {
	predictor := &mockPredictor{features: domain.Frame{
		Columns: []string{"Date", "temp", "Ap"},
		Rows:    [][]string{{"2024-06-20", "22", "9"}},
	}}
	srv := newTestServer(nil, &mockLoader{}, predictor)

	body := `{"urls":["https://bucket/public/solar/predi_data.csv","https://bucket/public/openweathermap/openweathermap_forecasts.csv"]}`
	rec := serve(srv, httptest.NewRequest(http.MethodPost, "/prep_data", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"0":{"Date":"2024-06-20","temp":22,"Ap":9}}`, rec.Body.String())
	assert.Equal(t, []string{
		"https://bucket/public/solar/predi_data.csv",
		"https://bucket/public/openweathermap/openweathermap_forecasts.csv",
	}, predictor.urls)
}

func TestPrepData_Invalid(t *testing.T) {
	srv := newTestServer(nil, &mockLoader{}, &mockPredictor{})

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"one url", `{"urls":["https://bucket/solar.csv"]}`},
		{"not a url", `{"urls":["solar","weather"]}`},
		{"missing", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, httptest.NewRequest(http.MethodPost, "/prep_data", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPredict(t *testing.T) {
	predictor := &mockPredictor{pred: domain.Prediction{
		Date:           []string{"2024-06-20"},
		TCHSolairePred: []float64{12.5},
		Error:          []float64{1.5},
	}}
	rec := serve(newTestServer(nil, &mockLoader{}, predictor), httptest.NewRequest(http.MethodPost, "/predict", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"Date":["2024-06-20"],"TCH_solaire_pred":[12.5],"Error":[1.5]}`, rec.Body.String())

	predictor.err = fmt.Errorf("read feature table: %w", domain.ErrNotFound)
	rec = serve(newTestServer(nil, &mockLoader{}, predictor), httptest.NewRequest(http.MethodPost, "/predict", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPredictLive(t *testing.T) {
	predictor := &mockPredictor{live: []float64{3.2, 4.1}}
	srv := newTestServer(nil, &mockLoader{}, predictor)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "live.csv")
	require.NoError(t, err)
	_, err = io.WriteString(part, "time,temp\n2024-06-20 12:00,22\n2024-06-20 13:00,23\n")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict_live", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(srv, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"prediction":[3.2,4.1]}`, rec.Body.String())
	assert.Equal(t, []string{"time", "temp"}, predictor.uploaded.Columns)
	assert.Len(t, predictor.uploaded.Rows, 2)
}

func TestPredictLive_MissingFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/predict_live", strings.NewReader("time,temp\n"))
	req.Header.Set("Content-Type", "text/csv")
	rec := serve(newTestServer(nil, &mockLoader{}, &mockPredictor{}), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
