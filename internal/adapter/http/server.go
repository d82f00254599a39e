// Package http serves the collection, preparation and scoring API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/renergies99/solar-forecast-etl/internal/codec"
	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/observability"
	"github.com/renergies99/solar-forecast-etl/internal/pipeline"
)

const (
	welcomeMessage = "Hello world! This `/` is the most simple and default endpoint."
	maxUploadBytes = 10 << 20
)

// Loader runs collectors at most once a day and exposes their markers.
type Loader interface {
	Load(ctx context.Context, c pipeline.Collector) (pipeline.Status, error)
	LastDownload(ctx context.Context, src pipeline.Source) (string, error)
}

// Predictor builds the feature table and scores it.
type Predictor interface {
	PrepData(ctx context.Context, solarURL, weatherURL string) (domain.Frame, error)
	Predict(ctx context.Context) (domain.Prediction, error)
	PredictLive(ctx context.Context, f domain.Frame) ([]float64, error)
}

// Options wires the server's collaborators. Collectors are keyed by the
// source name used in the /load_<name>_data route.
type Options struct {
	Addr       string
	Ready      sharedobs.ReadinessChecker
	Loader     Loader
	Predictor  Predictor
	Collectors map[pipeline.Source]pipeline.Collector
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Server exposes the API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	loader     Loader
	predictor  Predictor
	validate   *validator.Validate
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer registers every route on a fresh mux.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        opts.Addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Collection and scoring run inside the request.
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		loader:    opts.Loader,
		predictor: opts.Predictor,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(opts.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /prep_data", s.handlePrepData)
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("POST /predict_live", s.handlePredictLive)
	mux.HandleFunc("GET /predi_last_download", s.handleLastDownload(pipeline.SourcePrediction))

	for src, c := range opts.Collectors {
		mux.HandleFunc(fmt.Sprintf("GET /%s_last_download", src), s.handleLastDownload(src))
		mux.HandleFunc(fmt.Sprintf("GET /load_%s_data", src), s.handleLoad(c))
	}
	if c, ok := opts.Collectors[pipeline.SourceOpenWeatherMap]; ok {
		mux.HandleFunc("GET /load_openweathermap_forecasts", s.handleLoad(c))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, welcomeMessage)
}

// PrepDataRequest lists the solar table URL then the weather forecast URL.
type PrepDataRequest struct {
	URLs []string `json:"urls" validate:"len=2,dive,required,url"`
}

func (s *Server) handlePrepData(w http.ResponseWriter, r *http.Request) {
	var req PrepDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, "prep_data", http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, "prep_data", http.StatusBadRequest, err)
		return
	}

	features, err := s.predictor.PrepData(r.Context(), req.URLs[0], req.URLs[1])
	if err != nil {
		s.fail(w, "prep_data", statusFor(err), err)
		return
	}
	body, err := codec.FrameIndexJSON(features)
	if err != nil {
		s.fail(w, "prep_data", http.StatusInternalServerError, err)
		return
	}
	s.metrics.Predictions.WithLabelValues("prep_data", "success").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck // client gone
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	pred, err := s.predictor.Predict(r.Context())
	if err != nil {
		s.fail(w, "predict", statusFor(err), err)
		return
	}
	s.metrics.Predictions.WithLabelValues("predict", "success").Inc()
	writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handlePredictLive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		s.fail(w, "predict_live", http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	defer file.Close()

	features, err := domain.ReadFrame(file, ',')
	if err != nil {
		s.fail(w, "predict_live", http.StatusBadRequest, err)
		return
	}
	preds, err := s.predictor.PredictLive(r.Context(), features)
	if err != nil {
		s.fail(w, "predict_live", statusFor(err), err)
		return
	}
	s.metrics.Predictions.WithLabelValues("predict_live", "success").Inc()
	writeJSON(w, http.StatusOK, map[string][]float64{"prediction": preds})
}

func (s *Server) handleLastDownload(src pipeline.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := s.loader.LastDownload(r.Context(), src)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, day)
	}
}

// LoadResponse reports the outcome of a /load_<source>_data call.
type LoadResponse struct {
	Source string `json:"source"`
	Status string `json:"status"`
}

func (s *Server) handleLoad(c pipeline.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := s.loader.Load(r.Context(), c)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		resp := LoadResponse{Source: string(c.Source()), Status: "loaded"}
		if status == pipeline.AlreadyLoaded {
			resp.Status = "already_loaded"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) fail(w http.ResponseWriter, endpoint string, status int, err error) {
	s.metrics.Predictions.WithLabelValues(endpoint, "error").Inc()
	s.logger.Error("request failed", "endpoint", endpoint, "status", status, "error", err)
	writeError(w, status, err)
}

// statusFor maps domain errors to HTTP statuses. Anything else is treated
// as an upstream failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrMissingColumn), errors.Is(err, pipeline.ErrNoRows):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMissingCredentials):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client gone
}
