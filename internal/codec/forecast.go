// Package codec encodes collected datasets into their stored formats.
package codec

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

// ForecastCSV renders rows with the domain.ForecastColumns header.
func ForecastCSV(rows []domain.ForecastRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(domain.ForecastColumns); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(r.Strings()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write forecast csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ForecastParquet encodes rows as a single parquet file.
func ForecastParquet(rows []domain.ForecastRow) ([]byte, error) {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[domain.ForecastRow](&buf)
	if _, err := w.Write(rows); err != nil {
		return nil, fmt.Errorf("write forecast parquet: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close forecast parquet: %w", err)
	}
	return buf.Bytes(), nil
}
