package tollzone

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type TaxiRow struct {
	TimeInterval string `csv:"time_interval"`
	Count        string `csv:"count"`
	LocationID   string `csv:"LocationID"`
}

// TaxiPivot is the taxi prediction table pivoted onto the aggregation time
// grid, one column per location
type TaxiPivot struct {
	Index     []string                      `json:"index"`
	Locations []string                      `json:"locations"`
	Counts    map[string]map[string]float64 `json:"counts"`
}

// AlignTaxi trims taxi predictions to the aggregation grid, sums counts per
// (time interval, location) and reindexes onto the full time block set,
// filling gaps with zero
func AlignTaxi(taxiRows []TaxiRow, timeBlocks []string) TaxiPivot {
	pivot := TaxiPivot{
		Index:  timeBlocks,
		Counts: map[string]map[string]float64{},
	}

	if len(timeBlocks) == 0 {
		return pivot
	}

	maxBlock := timeBlocks[len(timeBlocks)-1]

	type cellKey struct {
		interval string
		location string
	}

	sums := map[cellKey]float64{}
	locationSet := map[string]bool{}

	for _, row := range taxiRows {
		interval := strings.TrimSpace(row.TimeInterval)
		if interval > maxBlock {
			continue
		}

		// Unparseable counts coerce to zero so the location still gets a
		// pivot column
		count, err := strconv.ParseFloat(strings.TrimSpace(row.Count), 64)
		if err != nil || math.IsNaN(count) {
			count = 0
		}

		location := strings.TrimSpace(row.LocationID)
		locationSet[location] = true

		sums[cellKey{interval: interval, location: location}] += count
	}

	pivot.Locations = maps.Keys(locationSet)
	slices.Sort(pivot.Locations)

	for _, block := range timeBlocks {
		row := map[string]float64{}

		for _, location := range pivot.Locations {
			row[location] = sums[cellKey{interval: block, location: location}]
		}

		pivot.Counts[block] = row
	}

	return pivot
}

func LoadTaxiTable(path string) ([]TaxiRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseTaxiTable(file)
}

func parseTaxiTable(reader io.Reader) ([]TaxiRow, error) {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})

	var rows []TaxiRow
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return nil, err
	}

	return rows, nil
}
