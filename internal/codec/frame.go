package codec

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

// FrameIndexJSON renders f as {"<row>": {"<column>": value}} with rows and
// columns in frame order. Numeric cells become JSON numbers, empty and
// non-finite cells null.
func FrameIndexJSON(f domain.Frame) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, row := range f.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(i)))
		buf.WriteString(":{")
		for j, col := range f.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := json.Marshal(Cell(row[j]))
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Cell converts a text cell to the JSON value it stands for.
func Cell(v string) any {
	if v == "" {
		return nil
	}
	n, err := strconv.ParseFloat(v, 64)
	switch {
	case err != nil:
		return v
	case math.IsNaN(n) || math.IsInf(n, 0):
		return nil
	default:
		return n
	}
}
