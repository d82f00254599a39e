package merge

import "github.com/renergies99/solar-forecast-etl/internal/domain"

// Missing is written into cells whose column did not exist in the source frame.
const Missing = "-"

// Frames concatenates frames row-wise over the union of their columns,
// in first-seen column order. Cells absent from a source frame are Missing.
func Frames(frames ...domain.Frame) domain.Frame {
	var out domain.Frame
	pos := make(map[string]int)
	for _, f := range frames {
		for _, c := range f.Columns {
			if _, ok := pos[c]; !ok {
				pos[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}

	for _, f := range frames {
		for _, row := range f.Rows {
			merged := make([]string, len(out.Columns))
			for i := range merged {
				merged[i] = Missing
			}
			for i, c := range f.Columns {
				if i < len(row) {
					merged[pos[c]] = row[i]
				}
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out
}
