package export

import (
	"github.com/parquet-go/parquet-go"

	"fxrate_go/internal/domain"
)

// ParquetSaver writes a series as Parquet.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(series domain.Series, path string) error {
	return parquet.WriteFile(path, RowsFromSeries(series))
}
