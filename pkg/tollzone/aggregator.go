package tollzone

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type VehicleClass string

const (
	ClassCars        VehicleClass = "cars"
	ClassSingleUnit  VehicleClass = "single_unit"
	ClassMultiUnit   VehicleClass = "multi_unit"
	ClassBuses       VehicleClass = "buses"
	ClassMotorcycles VehicleClass = "motorcycles"
	ClassTaxiFHV     VehicleClass = "taxifhv"
)

// AllClasses lists every vehicle class prediction table, in fixed order
var AllClasses = []VehicleClass{
	ClassCars, ClassSingleUnit, ClassMultiUnit, ClassBuses, ClassMotorcycles, ClassTaxiFHV,
}

type ClassRow struct {
	TimeBlock string `csv:"Toll 10 Minute Block"`
	Region    string `csv:"Detection Region"`
	Entries   string `csv:"Predicted CRZ Entries"`
}

type AggregateRecord struct {
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Time          string   `json:"time"`
	PredictionCRZ float64  `json:"predictionCRZ"`
	Region        string   `json:"region"`
}

// Aggregator fuses the per-vehicle-class prediction tables into one total
// per (time block, region). It remembers which unknown regions it has
// already logged so each key is reported once, guarded by a mutex because
// one aggregator is shared across concurrent request handlers.
type Aggregator struct {
	warnedMutex   sync.Mutex
	warnedRegions map[string]bool
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		warnedRegions: map[string]bool{},
	}
}

func (a *Aggregator) warnUnknownRegion(region string) {
	a.warnedMutex.Lock()
	defer a.warnedMutex.Unlock()

	if a.warnedRegions[region] {
		return
	}

	a.warnedRegions[region] = true
	log.Warn().Str("region", region).Msg("Unknown detection region")
}

// Aggregate sums the enabled class tables by (time block, region).
// Unparseable entry values count as zero.
func (a *Aggregator) Aggregate(tables map[VehicleClass][]ClassRow, toggles map[VehicleClass]bool) []AggregateRecord {
	type groupKey struct {
		timeBlock string
		region    string
	}

	totals := map[groupKey]float64{}

	for _, vehicleClass := range AllClasses {
		if !toggles[vehicleClass] {
			continue
		}

		for _, row := range tables[vehicleClass] {
			entries, err := strconv.ParseFloat(strings.TrimSpace(row.Entries), 64)
			if err != nil || math.IsNaN(entries) {
				entries = 0
			}

			key := groupKey{
				timeBlock: strings.TrimSpace(row.TimeBlock),
				region:    NormalizeRegion(row.Region),
			}

			totals[key] += entries
		}
	}

	keys := maps.Keys(totals)
	slices.SortFunc(keys, func(a, b groupKey) int {
		if a.timeBlock != b.timeBlock {
			return strings.Compare(a.timeBlock, b.timeBlock)
		}
		return strings.Compare(a.region, b.region)
	})

	records := make([]AggregateRecord, 0, len(keys))

	for _, key := range keys {
		record := AggregateRecord{
			Time:          key.timeBlock,
			Region:        key.region,
			PredictionCRZ: totals[key],
		}

		if coords, exists := knownRegions[key.region]; exists {
			latitude := coords.Latitude
			longitude := coords.Longitude

			record.Latitude = &latitude
			record.Longitude = &longitude
		} else {
			a.warnUnknownRegion(key.region)
		}

		records = append(records, record)
	}

	return records
}

// TimeBlocks returns the sorted distinct time blocks of an aggregation
func TimeBlocks(records []AggregateRecord) []string {
	seen := map[string]bool{}
	var blocks []string

	for _, record := range records {
		if !seen[record.Time] {
			seen[record.Time] = true
			blocks = append(blocks, record.Time)
		}
	}

	slices.Sort(blocks)

	return blocks
}

// LoadClassTables reads the six per-class prediction CSVs from a directory,
// named <class>.csv. Missing tables load as empty.
func LoadClassTables(dir string) (map[VehicleClass][]ClassRow, error) {
	tables := map[VehicleClass][]ClassRow{}

	for _, vehicleClass := range AllClasses {
		path := filepath.Join(dir, string(vehicleClass)+".csv")

		file, err := os.Open(path)
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("Vehicle class table missing")
			continue
		} else if err != nil {
			return nil, err
		}

		rows, err := parseClassTable(file)
		file.Close()
		if err != nil {
			return nil, err
		}

		tables[vehicleClass] = rows
	}

	return tables, nil
}

func parseClassTable(reader io.Reader) ([]ClassRow, error) {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})

	var rows []ClassRow
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return nil, err
	}

	return rows, nil
}
