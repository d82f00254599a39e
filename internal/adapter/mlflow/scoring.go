package mlflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/renergies99/solar-forecast-etl/internal/codec"
	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

// Scorer sends feature frames to a model server's /invocations endpoint.
type Scorer struct {
	doer    Doer
	baseURL string
}

// NewScorer creates a scorer for the model server at baseURL.
func NewScorer(doer Doer, baseURL string) *Scorer {
	return &Scorer{doer: doer, baseURL: strings.TrimRight(baseURL, "/")}
}

// Predict scores every row of f and returns one prediction per row.
func (s *Scorer) Predict(ctx context.Context, f domain.Frame) ([]float64, error) {
	body, err := json.Marshal(map[string]any{"dataframe_split": splitFrame(f)})
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}

	res, err := s.doer.Do(ctx, http.MethodPost, s.baseURL+"/invocations", "application/json", body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Predictions []float64 `json:"predictions"`
	}
	if err := json.Unmarshal(res.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode predictions: %w", err)
	}
	if len(resp.Predictions) != len(f.Rows) {
		return nil, fmt.Errorf("model returned %d predictions for %d rows", len(resp.Predictions), len(f.Rows))
	}
	return resp.Predictions, nil
}

type dataframeSplit struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

// splitFrame converts cells to JSON numbers where they parse, null where
// empty, and strings otherwise.
func splitFrame(f domain.Frame) dataframeSplit {
	out := dataframeSplit{Columns: f.Columns, Data: make([][]any, len(f.Rows))}
	for i, row := range f.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = codec.Cell(v)
		}
		out.Data[i] = cells
	}
	return out
}
