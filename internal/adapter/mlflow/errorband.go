package mlflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

// ErrorBandsArtifact is the run artifact holding the residual table.
const ErrorBandsArtifact = "error.json"

// ParseErrorBands decodes the error.json artifact. Columns may be JSON arrays or
// objects keyed by row index.
func ParseErrorBands(data []byte) (domain.ErrorBands, error) {
	var cols map[string]json.RawMessage
	if err := json.Unmarshal(data, &cols); err != nil {
		return domain.ErrorBands{}, fmt.Errorf("decode error bands: %w", err)
	}

	var b domain.ErrorBands
	for name, dst := range map[string]*[]float64{"min": &b.Min, "max": &b.Max, "std": &b.Std} {
		raw, ok := cols[name]
		if !ok {
			return domain.ErrorBands{}, fmt.Errorf("error bands: missing column %q", name)
		}
		v, err := decodeColumn(raw)
		if err != nil {
			return domain.ErrorBands{}, fmt.Errorf("error bands column %q: %w", name, err)
		}
		*dst = v
	}

	if len(b.Std) == 0 || len(b.Min) != len(b.Std) || len(b.Max) != len(b.Std) {
		return domain.ErrorBands{}, errors.New("error bands: columns must be non-empty and of equal length")
	}
	return b, nil
}

func decodeColumn(raw json.RawMessage) ([]float64, error) {
	var list []float64
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var indexed map[string]float64
	if err := json.Unmarshal(raw, &indexed); err != nil {
		return nil, err
	}
	keys := make([]int, 0, len(indexed))
	for k := range indexed {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("row index %q: %w", k, err)
		}
		keys = append(keys, i)
	}
	slices.Sort(keys)
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = indexed[strconv.Itoa(k)]
	}
	return out, nil
}
