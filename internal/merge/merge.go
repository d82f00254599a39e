// Package merge combines newly collected data with previously stored data
// without duplicating dates, cities or observations.
package merge

import (
	"slices"
	"time"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

// AppendDaily adds the records whose date is not yet present in t, unions
// their fields into t.Columns and keeps rows ordered by date. It returns the
// number of rows added. Running it twice with the same records is a no-op
// the second time.
func AppendDaily(t *domain.Table, records ...domain.DailyRecord) int {
	seen := make(map[time.Time]bool, len(t.Rows))
	for _, r := range t.Rows {
		seen[r.Date] = true
	}
	known := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		known[c] = true
	}

	added := 0
	for _, rec := range records {
		rec.Date = domain.TruncateDay(rec.Date)
		if seen[rec.Date] {
			continue
		}
		seen[rec.Date] = true
		for _, k := range recordKeys(rec) {
			if !known[k] {
				known[k] = true
				t.Columns = append(t.Columns, k)
			}
		}
		t.Rows = append(t.Rows, rec)
		added++
	}

	if added > 0 {
		slices.SortStableFunc(t.Rows, func(a, b domain.DailyRecord) int {
			return a.Date.Compare(b.Date)
		})
	}
	return added
}

// recordKeys returns the record's fields in order, falling back to sorted
// map keys for records built without Set.
func recordKeys(rec domain.DailyRecord) []string {
	if len(rec.Keys) == len(rec.Values) {
		return rec.Keys
	}
	keys := make([]string, 0, len(rec.Values))
	for k := range rec.Values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// NextDate returns the day after the latest stored row, or fallback for an
// empty table.
func NextDate(t *domain.Table, fallback time.Time) time.Time {
	last, ok := t.LastDate()
	if !ok {
		return domain.TruncateDay(fallback)
	}
	return last.AddDate(0, 0, 1)
}

// Days lists every day in [from, to).
func Days(from, to time.Time) []time.Time {
	from, to = domain.TruncateDay(from), domain.TruncateDay(to)
	var days []time.Time
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
