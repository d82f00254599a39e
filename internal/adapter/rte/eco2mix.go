// Package rte reads the eCO2mix regional exports published by RTE.
//
// The exports are tab-separated ISO-8859-1 text despite their .xls suffix.
// Each file ends with a disclaimer line and every row with a trailing tab,
// so the last row and the last column are dropped on read.
package rte

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/text/encoding/charmap"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
	"github.com/renergies99/solar-forecast-etl/internal/fetch"
)

// Column names used by the transform.
const (
	ColumnDate  = "Date"
	ColumnHours = "Heures"
)

// Getter is the subset of fetch.Fetcher the client needs.
type Getter interface {
	Get(ctx context.Context, url string) (fetch.Result, error)
}

// Client downloads the annual archives and the current-year zip.
type Client struct {
	getter Getter
}

// NewClient creates a client on getter.
func NewClient(getter Getter) *Client {
	return &Client{getter: getter}
}

// Archive downloads and decodes one definitive annual export.
func (c *Client) Archive(ctx context.Context, url string) (domain.Frame, error) {
	res, err := c.getter.Get(ctx, url)
	if err != nil {
		return domain.Frame{}, err
	}
	f, err := Decode(res.Body)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("decode %s: %w", url, err)
	}
	return f, nil
}

// Current downloads the real-time zip and decodes the export inside it.
func (c *Client) Current(ctx context.Context, url string) (domain.Frame, error) {
	res, err := c.getter.Get(ctx, url)
	if err != nil {
		return domain.Frame{}, err
	}
	body, err := Unzip(res.Body)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("unzip %s: %w", url, err)
	}
	f, err := Decode(body)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("decode %s: %w", url, err)
	}
	return f, nil
}

// Unzip returns the content of the first export in the archive.
func Unzip(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("empty archive")
}

// Decode converts ISO-8859-1 tab-separated text into a frame, dropping the
// trailing disclaimer row and the empty last column.
func Decode(raw []byte) (domain.Frame, error) {
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return domain.Frame{}, err
	}
	f, err := domain.ReadFrame(bytes.NewReader(text), '\t')
	if err != nil {
		return domain.Frame{}, err
	}
	if len(f.Rows) > 0 {
		f.Rows = f.Rows[:len(f.Rows)-1]
	}
	if n := len(f.Columns); n > 0 {
		f.Columns = f.Columns[:n-1]
		for i, row := range f.Rows {
			f.Rows[i] = row[:n-1]
		}
	}
	return f, nil
}

// DropDate removes the rows dated day, formatted YYYY-MM-DD.
func DropDate(f domain.Frame, day string) domain.Frame {
	idx := f.Index(ColumnDate)
	if idx < 0 {
		return f
	}
	out := domain.Frame{Columns: f.Columns}
	for _, row := range f.Rows {
		if row[idx] != day {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Transform keeps half-hourly rows and coerces the TCO/TCH rate columns to
// numbers. Values that do not parse become empty.
func Transform(f domain.Frame) domain.Frame {
	hours := f.Index(ColumnHours)
	var rates []int
	for i, c := range f.Columns {
		if strings.Contains(c, "TCO") || strings.Contains(c, "TCH") {
			rates = append(rates, i)
		}
	}

	out := domain.Frame{Columns: f.Columns}
	for _, row := range f.Rows {
		if hours >= 0 && (strings.Contains(row[hours], ":15") || strings.Contains(row[hours], ":45")) {
			continue
		}
		row = append([]string(nil), row...)
		for _, i := range rates {
			row[i] = coerceNumber(row[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func coerceNumber(s string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
