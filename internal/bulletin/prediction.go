package bulletin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

const predictionDatesBlock = "Prediction_dates"

// predictionRenames maps block names of the 3-day prediction onto the column
// names used by the summary bulletin, so both tables share features.
var predictionRenames = map[string]string{
	"Geomagnetic_A_indices": FieldAp,
	"Pred_Mid_k":            FieldKIndexPlanetary,
	"10cm_flux":             FieldFlux10cm,
}

var skippedBlocks = map[string]bool{
	"Polar_cap": true,
	"Reg_Prob":  true,
}

// ParsePrediction decodes the 3-day space weather prediction bulletin into
// one row per predicted day. Each colon-labelled block becomes a column
// holding the per-day mean of the block's numeric rows.
func ParsePrediction(text string) (domain.Table, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		dates  []time.Time
		order  []string
		blocks = make(map[string][][]float64)
		block  string
	)

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			block = ""
			continue
		case strings.HasPrefix(trimmed, ":"):
			name, rest, ok := strings.Cut(trimmed[1:], ":")
			if !ok {
				block = ""
				continue
			}
			if name == predictionDatesBlock {
				parsed, err := parsePredictionDates(rest)
				if err != nil {
					return domain.Table{}, err
				}
				dates = parsed
				block = ""
				continue
			}
			block = ""
			if strings.TrimSpace(rest) == "" && !skippedBlocks[name] {
				block = name
			}
			continue
		}

		if block == "" || len(dates) == 0 {
			continue
		}
		values, ok := trailingNumbers(trimmed, len(dates))
		if !ok {
			continue
		}
		if _, seen := blocks[block]; !seen {
			order = append(order, block)
		}
		blocks[block] = append(blocks[block], values)
	}

	if len(dates) == 0 {
		return domain.Table{}, fmt.Errorf("%w: %s not found", domain.ErrMalformedBulletin, predictionDatesBlock)
	}

	table := domain.Table{}
	for i, d := range dates {
		rec := domain.NewDailyRecord(d)
		for _, name := range order {
			col := name
			if renamed, ok := predictionRenames[name]; ok {
				col = renamed
			}
			rec.Set(col, formatFloat(columnMean(blocks[name], i)))
		}
		table.Rows = append(table.Rows, rec)
	}
	if len(table.Rows) > 0 {
		table.Columns = append(table.Columns, table.Rows[0].Keys...)
	}
	return table, nil
}

// parsePredictionDates reads "2025 Jun 16  2025 Jun 17  2025 Jun 18".
func parsePredictionDates(s string) ([]time.Time, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields)%3 != 0 {
		return nil, fmt.Errorf("%w: prediction dates %q", domain.ErrMalformedBulletin, strings.TrimSpace(s))
	}
	dates := make([]time.Time, 0, len(fields)/3)
	for i := 0; i < len(fields); i += 3 {
		d, err := time.Parse("2006 Jan 2", strings.Join(fields[i:i+3], " "))
		if err != nil {
			return nil, fmt.Errorf("%w: prediction date: %v", domain.ErrMalformedBulletin, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// trailingNumbers parses the last n whitespace-separated tokens of a row.
// Row labels such as "A_Planetary" or "0000-0300" precede the values.
func trailingNumbers(line string, n int) ([]float64, bool) {
	fields := strings.Fields(line)
	if len(fields) < n {
		return nil, false
	}
	values := make([]float64, n)
	for i, f := range fields[len(fields)-n:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func columnMean(rows [][]float64, col int) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += r[col]
	}
	return sum / float64(len(rows))
}
