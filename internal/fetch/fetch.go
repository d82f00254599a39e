// Package fetch performs upstream HTTP calls that back off and retry when
// the remote side answers 429 Too Many Requests.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/renergies99/solar-forecast-etl/internal/observability"
)

// ErrRateLimited is returned alongside the last response when every attempt
// was answered with 429.
var ErrRateLimited = errors.New("rate limited: retries exhausted")

// StatusError reports a non-2xx, non-429 response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Result is a fully read HTTP response.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

const (
	defaultMaxAttempts = 3
	defaultInitialWait = time.Second
	maxErrorBody       = 512
)

// Fetcher issues HTTP requests with rate-limit aware retries.
type Fetcher struct {
	client      *http.Client
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
	maxAttempts int
	initialWait time.Duration
	userAgent   string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithClock sets the clock used for backoff sleeps.
func WithClock(c clockwork.Clock) Option {
	return func(f *Fetcher) { f.clock = c }
}

// WithMaxAttempts caps the number of attempts per request.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithInitialWait sets the first backoff used when no Retry-After header is present.
func WithInitialWait(d time.Duration) Option {
	return func(f *Fetcher) { f.initialWait = d }
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// New creates a Fetcher. Defaults: 3 attempts, 1s initial wait, 30s client timeout.
func New(logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		clock:       clockwork.NewRealClock(),
		logger:      logger,
		metrics:     metrics,
		maxAttempts: defaultMaxAttempts,
		initialWait: defaultInitialWait,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get fetches url.
func (f *Fetcher) Get(ctx context.Context, url string) (Result, error) {
	return f.Do(ctx, http.MethodGet, url, "", nil)
}

// Post sends body to url.
func (f *Fetcher) Post(ctx context.Context, url, contentType string, body []byte) (Result, error) {
	return f.Do(ctx, http.MethodPost, url, contentType, body)
}

// Do sends the request, retrying on 429. The wait before a retry is the
// Retry-After header in seconds when present, otherwise a default that starts
// at the initial wait and doubles after every 429.
//
// A 2xx response returns a nil error. Any other status returns *StatusError
// immediately. When all attempts are rate limited, the last response is
// returned together with ErrRateLimited.
func (f *Fetcher) Do(ctx context.Context, method, url, contentType string, body []byte) (Result, error) {
	wait := f.initialWait
	var last Result

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		res, err := f.once(ctx, method, url, contentType, body)
		if err != nil {
			f.metrics.FetchAttempts.WithLabelValues("transport_error").Inc()
			return Result{}, err
		}

		switch {
		case res.StatusCode == http.StatusTooManyRequests:
			f.metrics.FetchAttempts.WithLabelValues("rate_limited").Inc()
			last = res
			if attempt == f.maxAttempts {
				break
			}
			d := retryAfter(res.Header, wait)
			f.logger.Warn("rate limited, backing off",
				"url", url, "attempt", attempt, "wait", d)
			f.metrics.FetchBackoff.Observe(d.Seconds())
			if err := sleepWithContext(ctx, f.clock, d); err != nil {
				return Result{}, err
			}
			wait *= 2

		case res.StatusCode >= 200 && res.StatusCode < 300:
			f.metrics.FetchAttempts.WithLabelValues("success").Inc()
			return res, nil

		default:
			f.metrics.FetchAttempts.WithLabelValues("http_error").Inc()
			return res, &StatusError{URL: url, StatusCode: res.StatusCode, Body: truncate(string(res.Body), maxErrorBody)}
		}
	}

	f.logger.Error("giving up after repeated rate limiting", "url", url, "attempts", f.maxAttempts)
	return last, fmt.Errorf("%s: %w after %d attempts", url, ErrRateLimited, f.maxAttempts)
}

func (f *Fetcher) once(ctx context.Context, method, url, contentType string, body []byte) (Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", url, err)
	}
	return Result{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// retryAfter reads an integer Retry-After header, falling back to def.
func retryAfter(h http.Header, def time.Duration) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return def
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
