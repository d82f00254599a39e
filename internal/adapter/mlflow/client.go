// Package mlflow talks to an MLflow tracking server over its REST API and
// to a model served with "mlflow models serve".
package mlflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/fetch"
	"github.com/renergies99/solar-forecast-etl/internal/registry"
)

const apiPrefix = "/api/2.0/mlflow"

// Doer is the subset of fetch.Fetcher the clients need.
type Doer interface {
	Do(ctx context.Context, method, url, contentType string, body []byte) (fetch.Result, error)
}

// Client implements registry.Registry against a tracking server.
type Client struct {
	doer    Doer
	baseURL string
	logger  *slog.Logger
}

var _ registry.Registry = (*Client)(nil)

// NewClient creates a client for the tracking server at baseURL.
func NewClient(doer Doer, baseURL string, logger *slog.Logger) *Client {
	return &Client{doer: doer, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// AliasVersion resolves alias on a registered model.
func (c *Client) AliasVersion(ctx context.Context, model, alias string) (registry.ModelVersion, error) {
	q := url.Values{"name": {model}, "alias": {alias}}
	var resp struct {
		ModelVersion struct {
			Name    string `json:"name"`
			Version string `json:"version"`
			RunID   string `json:"run_id"`
		} `json:"model_version"`
	}
	if err := c.call(ctx, http.MethodGet, "/registered-models/alias?"+q.Encode(), nil, &resp); err != nil {
		return registry.ModelVersion{}, err
	}
	mv := resp.ModelVersion
	return registry.ModelVersion{Name: mv.Name, Version: mv.Version, RunID: mv.RunID}, nil
}

// RunMetrics returns the latest value of each metric logged by runID.
func (c *Client) RunMetrics(ctx context.Context, runID string) (map[string]float64, error) {
	run, err := c.run(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(run.Data.Metrics))
	for _, m := range run.Data.Metrics {
		out[m.Key] = m.Value
	}
	return out, nil
}

// SetAlias points alias at version.
func (c *Client) SetAlias(ctx context.Context, model, alias, version string) error {
	body, err := json.Marshal(map[string]string{"name": model, "alias": alias, "version": version})
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPost, "/registered-models/alias", body, nil)
}

// Artifact downloads a file logged by runID, path relative to the run's
// artifact root.
func (c *Client) Artifact(ctx context.Context, runID, path string) ([]byte, error) {
	q := url.Values{"run_uuid": {runID}, "path": {path}}
	u := c.baseURL + "/get-artifact?" + q.Encode()
	res, err := c.doer.Do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return nil, mapError(err)
	}
	return res.Body, nil
}

// ErrorBands loads the residual table logged by the run behind alias.
func (c *Client) ErrorBands(ctx context.Context, model, alias string) (domain.ErrorBands, error) {
	mv, err := c.AliasVersion(ctx, model, alias)
	if err != nil {
		return domain.ErrorBands{}, fmt.Errorf("resolve %s@%s: %w", model, alias, err)
	}
	body, err := c.Artifact(ctx, mv.RunID, ErrorBandsArtifact)
	if err != nil {
		return domain.ErrorBands{}, fmt.Errorf("load %s of run %s: %w", ErrorBandsArtifact, mv.RunID, err)
	}
	c.logger.Debug("error bands loaded", "model", model, "alias", alias, "version", mv.Version)
	return ParseErrorBands(body)
}

type run struct {
	Info struct {
		RunID       string `json:"run_id"`
		ArtifactURI string `json:"artifact_uri"`
	} `json:"info"`
	Data struct {
		Metrics []struct {
			Key   string  `json:"key"`
			Value float64 `json:"value"`
		} `json:"metrics"`
	} `json:"data"`
}

func (c *Client) run(ctx context.Context, runID string) (run, error) {
	var resp struct {
		Run run `json:"run"`
	}
	q := url.Values{"run_id": {runID}}
	if err := c.call(ctx, http.MethodGet, "/runs/get?"+q.Encode(), nil, &resp); err != nil {
		return run{}, err
	}
	return resp.Run, nil
}

func (c *Client) call(ctx context.Context, method, path string, body []byte, out any) error {
	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	res, err := c.doer.Do(ctx, method, c.baseURL+apiPrefix+path, contentType, body)
	if err != nil {
		return mapError(err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// mapError turns MLflow's 404 RESOURCE_DOES_NOT_EXIST into domain.ErrNotFound.
func mapError(err error) error {
	var se *fetch.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, se.Body)
	}
	return err
}
