package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"fxrate_go/internal/domain"
)

// CSVSaver writes a series as CSV (header: t,currency,rate,volume).
// A missing volume is an empty cell.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(series domain.Series, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	if err := w.Write([]string{"t", "currency", "rate", "volume"}); err != nil {
		return err
	}
	for _, r := range RowsFromSeries(series) {
		volume := ""
		if r.Volume != nil {
			volume = floatStr(*r.Volume)
		}
		if err := w.Write([]string{
			strconv.FormatInt(r.Timestamp, 10),
			r.Currency,
			floatStr(r.Rate),
			volume,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
