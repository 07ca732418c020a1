package stations

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"

	"github.com/crzmap/crzmap/pkg/util"
)

// ErrConfig is returned when the registry file is missing or unreadable
var ErrConfig = errors.New("station registry configuration error")

type Station struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Registry holds the closed set of recognised Manhattan stations, keyed by
// normalised name. It is immutable once loaded and safe for concurrent reads.
type Registry struct {
	stations []Station
	byKey    map[string]int
}

type stopRow struct {
	StopName  string `csv:"Stop Name"`
	Latitude  string `csv:"GTFS Latitude"`
	Longitude string `csv:"GTFS Longitude"`
}

// Normalize trims a station name, collapses internal whitespace and strips
// any parenthetical suffix. When the result matches a registered station the
// canonical cased form is returned.
func (r *Registry) Normalize(name string) string {
	normalized := util.CollapseWhitespace(util.StripParentheticals(name))

	if r != nil {
		if index, exists := r.byKey[strings.ToLower(normalized)]; exists {
			return r.stations[index].Name
		}
	}

	return normalized
}

// Stations returns every registered station in file order
func (r *Registry) Stations() []Station {
	return r.stations
}

func (r *Registry) Contains(name string) bool {
	normalized := util.CollapseWhitespace(util.StripParentheticals(name))
	_, exists := r.byKey[strings.ToLower(normalized)]

	return exists
}

func (r *Registry) Coords(name string) (float64, float64, bool) {
	normalized := util.CollapseWhitespace(util.StripParentheticals(name))

	index, exists := r.byKey[strings.ToLower(normalized)]
	if !exists {
		return 0, 0, false
	}

	return r.stations[index].Latitude, r.stations[index].Longitude, true
}

func LoadRegistry(path string) (*Registry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfig, err.Error())
	}
	defer file.Close()

	return ParseRegistry(file)
}

func ParseRegistry(reader io.Reader) (*Registry, error) {
	// Allow us to ignore those naughty records that have missing columns
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})

	var rows []stopRow
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfig, err.Error())
	}

	registry := &Registry{
		byKey: map[string]int{},
	}

	malformedRows := 0

	for _, row := range rows {
		name := util.CollapseWhitespace(util.StripParentheticals(row.StopName))
		if name == "" {
			malformedRows += 1
			continue
		}

		latitude, latErr := strconv.ParseFloat(strings.TrimSpace(row.Latitude), 64)
		longitude, lonErr := strconv.ParseFloat(strings.TrimSpace(row.Longitude), 64)

		if latErr != nil || lonErr != nil {
			malformedRows += 1
			continue
		}

		key := strings.ToLower(name)

		if _, exists := registry.byKey[key]; exists {
			log.Debug().Str("station", name).Msg("Duplicate station in registry")
			continue
		}

		registry.byKey[key] = len(registry.stations)
		registry.stations = append(registry.stations, Station{
			Name:      name,
			Latitude:  latitude,
			Longitude: longitude,
		})
	}

	if malformedRows > 0 {
		log.Info().Int("rows", malformedRows).Msg("Skipped malformed registry rows")
	}

	log.Info().Int("stations", len(registry.stations)).Msg("Loaded station registry")

	return registry, nil
}
