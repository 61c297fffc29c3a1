package export

import (
	"encoding/json"
	"os"

	"fxrate_go/internal/domain"
)

// JSONSaver writes a series as an indented JSON array of rows.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(series domain.Series, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(RowsFromSeries(series))
}
