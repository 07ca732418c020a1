package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

// WriteCache stores the raw pre-normalisation endpoint rows as a CSV file
// with the same columns as the API response, so the model builder can run
// without touching the endpoint again
func WriteCache(path string, rows []RawRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := gocsv.Marshal(&rows, file); err != nil {
		return err
	}

	log.Info().Str("path", path).Int("rows", len(rows)).Msg("Wrote ridership cache")

	return nil
}

func ReadCache(path string) ([]RawRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseCache(file)
}

func parseCache(reader io.Reader) ([]RawRow, error) {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})

	var rows []RawRow
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return nil, err
	}

	return rows, nil
}
