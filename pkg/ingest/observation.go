package ingest

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/crzmap/crzmap/pkg/stations"
	"github.com/crzmap/crzmap/pkg/util"
)

// RawRow is a single unprocessed record from the upstream ridership endpoint,
// kept with string fields so the local cache matches the API response exactly
type RawRow struct {
	TransitTimestamp string `json:"transit_timestamp" csv:"transit_timestamp"`
	StationComplex   string `json:"station_complex" csv:"station_complex"`
	Ridership        string `json:"ridership" csv:"ridership"`
	Transfers        string `json:"transfers" csv:"transfers"`
}

type Observation struct {
	Timestamp time.Time
	Station   string
	Ridership float64
	Transfers float64
}

const timestampFormat = "2006-01-02T15:04:05.000"

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{timestampFormat, "2006-01-02T15:04:05", time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}

	return time.Parse(timestampFormat, value)
}

// Consolidate turns raw endpoint rows into per-station observations. Station
// complexes are split on "/" into their component stations, parenthetical
// suffixes are stripped, and duplicate (timestamp, station) rows have their
// ridership and transfers summed. Only stations present in the registry are
// retained.
func Consolidate(rawRows []RawRow, registry *stations.Registry) []Observation {
	type observationKey struct {
		timestamp time.Time
		station   string
	}

	grouped := map[observationKey]*Observation{}
	var order []observationKey

	for _, row := range rawRows {
		timestamp, err := parseTimestamp(row.TransitTimestamp)
		if err != nil {
			continue
		}

		ridership, err := strconv.ParseFloat(strings.TrimSpace(row.Ridership), 64)
		if err != nil || math.IsNaN(ridership) {
			// NaN ridership rows are dropped
			continue
		}

		transfers, _ := strconv.ParseFloat(strings.TrimSpace(row.Transfers), 64)

		for _, subName := range strings.Split(row.StationComplex, "/") {
			name := registry.Normalize(util.StripParentheticals(subName))

			if !registry.Contains(name) {
				continue
			}

			key := observationKey{timestamp: timestamp, station: name}

			if existing, exists := grouped[key]; exists {
				existing.Ridership += ridership
				existing.Transfers += transfers
			} else {
				grouped[key] = &Observation{
					Timestamp: timestamp,
					Station:   name,
					Ridership: ridership,
					Transfers: transfers,
				}
				order = append(order, key)
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if !order[i].timestamp.Equal(order[j].timestamp) {
			return order[i].timestamp.Before(order[j].timestamp)
		}
		return order[i].station < order[j].station
	})

	observations := make([]Observation, 0, len(order))
	for _, key := range order {
		observations = append(observations, *grouped[key])
	}

	return observations
}
