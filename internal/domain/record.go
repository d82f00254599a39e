package domain

import (
	"time"
)

// DateLayout is the canonical day format for dated rows and markers.
const DateLayout = "2006-01-02"

// DateColumn is the leading column of every dated table.
const DateColumn = "date"

// DailyRecord is one dated row: field name to scalar value, rendered as text.
// Keys keeps the field order in which values were first set.
type DailyRecord struct {
	Date   time.Time
	Keys   []string
	Values map[string]string
}

// NewDailyRecord returns an empty record for the given day.
func NewDailyRecord(date time.Time) DailyRecord {
	return DailyRecord{Date: TruncateDay(date), Values: make(map[string]string)}
}

// Set stores a value, appending field to Keys the first time it is seen.
func (r *DailyRecord) Set(field, value string) {
	if r.Values == nil {
		r.Values = make(map[string]string)
	}
	if _, ok := r.Values[field]; !ok {
		r.Keys = append(r.Keys, field)
	}
	r.Values[field] = value
}

// Get returns the value stored under field, or "" when absent.
func (r DailyRecord) Get(field string) string {
	return r.Values[field]
}

// Table is an ordered collection of dated rows, unique by date.
// Columns lists the value columns in first-seen order, excluding DateColumn.
type Table struct {
	Columns []string
	Rows    []DailyRecord
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// LastDate returns the latest row date, and false for an empty table.
func (t Table) LastDate() (time.Time, bool) {
	var last time.Time
	for _, r := range t.Rows {
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return last, !last.IsZero()
}
