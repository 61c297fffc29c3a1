// Package export writes a rate series to disk as CSV, JSON or Parquet.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fxrate_go/internal/domain"
)

// Row is the on-disk shape of one observation.
// Timestamp is unix seconds; Volume is omitted when the point has none.
type Row struct {
	Timestamp int64    `json:"t" parquet:"t"`
	Currency  string   `json:"currency" parquet:"currency"`
	Rate      float64  `json:"rate" parquet:"rate"`
	Volume    *float64 `json:"volume,omitempty" parquet:"volume,optional"`
}

// Saver writes one series to path.
type Saver interface {
	Save(series domain.Series, path string) error
	Extension() string
}

// NewSaver creates implementation by format (csv, parquet, json).
// Returns nil if format not supported.
func NewSaver(format string) Saver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}

// SaverFor is NewSaver with an error for unknown formats.
func SaverFor(format string) (Saver, error) {
	s := NewSaver(format)
	if s == nil {
		return nil, fmt.Errorf("%w: %q (use csv, parquet, json)", domain.ErrUnsupportedFormat, format)
	}
	return s, nil
}

// RowsFromSeries flattens a series into export rows.
func RowsFromSeries(series domain.Series) []Row {
	rows := make([]Row, len(series.Points))
	for i, p := range series.Points {
		rows[i] = Row{
			Timestamp: p.Timestamp.Unix(),
			Currency:  series.Currency,
			Rate:      p.Rate,
			Volume:    p.Volume,
		}
	}
	return rows
}

// WriteSeries saves series into dir as <CUR>_<first>_<last>.<ext> and returns the path.
func WriteSeries(s Saver, series domain.Series, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	name := series.Currency
	if !series.Empty() {
		first, last := series.Span()
		name += "_" + first.Format("20060102") + "_" + last.Format("20060102")
	}
	path := filepath.Join(dir, name+"."+s.Extension())

	if err := s.Save(series, path); err != nil {
		return "", fmt.Errorf("failed to export %s: %w", series.Currency, err)
	}
	return path, nil
}
