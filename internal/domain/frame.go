package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// Frame is an untyped tabular dataset: a header row and string cells.
// Rows are kept at the header width.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// Index returns the position of column, or -1.
func (f *Frame) Index(column string) int {
	for i, c := range f.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Column returns every value of column, or nil when the column is absent.
func (f *Frame) Column(column string) []string {
	idx := f.Index(column)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[idx]
	}
	return out
}

// DropColumn removes column in place. Missing columns are ignored.
func (f *Frame) DropColumn(column string) {
	idx := f.Index(column)
	if idx < 0 {
		return
	}
	f.Columns = append(f.Columns[:idx:idx], f.Columns[idx+1:]...)
	for i, row := range f.Rows {
		f.Rows[i] = append(row[:idx:idx], row[idx+1:]...)
	}
}

// ReadFrame decodes delimited text with a header line. Ragged rows are
// padded or cut to the header width.
func ReadFrame(r io.Reader, comma rune) (Frame, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Frame{}, nil
	}
	if err != nil {
		return Frame{}, fmt.Errorf("read header: %w", err)
	}

	f := Frame{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Frame{}, fmt.Errorf("read row %d: %w", len(f.Rows)+1, err)
		}
		f.Rows = append(f.Rows, fitRow(rec, len(header)))
	}
	return f, nil
}

// WriteCSV encodes the frame as comma-separated text with a header line.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(f.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func fitRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

// ReadTable decodes a dated CSV table whose first column is DateColumn.
func ReadTable(r io.Reader) (Table, error) {
	f, err := ReadFrame(r, ',')
	if err != nil {
		return Table{}, err
	}
	return TableFromFrame(f)
}

// TableFromFrame converts a frame with a leading DateColumn into a Table.
func TableFromFrame(f Frame) (Table, error) {
	if len(f.Columns) == 0 {
		return Table{}, nil
	}
	if f.Columns[0] != DateColumn {
		return Table{}, fmt.Errorf("first column is %q, want %q", f.Columns[0], DateColumn)
	}

	t := Table{Columns: append([]string(nil), f.Columns[1:]...)}
	for i, row := range f.Rows {
		d, err := ParseDate(row[0])
		if err != nil {
			return Table{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		rec := NewDailyRecord(d)
		for j, col := range t.Columns {
			rec.Set(col, row[j+1])
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Frame renders the table with DateColumn first and absent values empty.
func (t *Table) Frame() Frame {
	f := Frame{Columns: append([]string{DateColumn}, t.Columns...)}
	for _, r := range t.Rows {
		row := make([]string, 0, len(f.Columns))
		row = append(row, FormatDate(r.Date))
		for _, c := range t.Columns {
			row = append(row, r.Values[c])
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

// WriteCSV encodes the table as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	f := t.Frame()
	return f.WriteCSV(w)
}
