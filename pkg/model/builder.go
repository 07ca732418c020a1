package model

import (
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/crzmap/crzmap/pkg/ingest"
)

const (
	minStationObservations = 24
	minDayObservations     = 12
	minARObservations      = 30
)

// Build fits the two-tier ridership model from consolidated observations.
// Stations with fewer than minStationObservations observations are omitted
// entirely. The result is deterministic for identical input.
func Build(observations []ingest.Observation) *Artifact {
	artifact := &Artifact{
		ByStation:    map[string]StationModel{},
		DayFactors:   map[string]map[string]float64{},
		TimePatterns: map[string][]float64{},
		DayTime:      map[string]map[string]map[int]float64{},
	}

	byStation := map[string][]ingest.Observation{}
	for _, observation := range observations {
		byStation[observation.Station] = append(byStation[observation.Station], observation)
	}

	stationNames := maps.Keys(byStation)
	slices.Sort(stationNames)

	skipped := 0

	for _, station := range stationNames {
		stationObservations := byStation[station]

		if len(stationObservations) < minStationObservations {
			skipped += 1
			continue
		}

		sort.SliceStable(stationObservations, func(i, j int) bool {
			return stationObservations[i].Timestamp.Before(stationObservations[j].Timestamp)
		})

		avgRidership := meanRidership(stationObservations)

		stationModel := StationModel{
			AvgRidership: avgRidership,
		}

		if len(stationObservations) >= minARObservations {
			series := make([]float64, len(stationObservations))
			for index, observation := range stationObservations {
				series[index] = observation.Ridership
			}

			params, err := FitAR3(series)
			if err != nil {
				// The station keeps its factor model only
				log.Debug().Err(err).Str("station", station).Msg("AR fit failed")
			} else {
				stationModel.ARParams = params
			}
		}

		artifact.ByStation[station] = stationModel
		artifact.DayFactors[station] = buildDayFactors(stationObservations, avgRidership)
		artifact.TimePatterns[station] = buildTimePatterns(stationObservations, avgRidership)

		if dayTime := buildDayTime(stationObservations); len(dayTime) > 0 {
			artifact.DayTime[station] = dayTime
		}
	}

	log.Info().
		Int("stations", len(artifact.ByStation)).
		Int("skipped", skipped).
		Msg("Built ridership model")

	return artifact
}

func meanRidership(observations []ingest.Observation) float64 {
	total := 0.0
	for _, observation := range observations {
		total += observation.Ridership
	}

	return total / float64(len(observations))
}

func buildDayFactors(observations []ingest.Observation, avgRidership float64) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}

	for _, observation := range observations {
		day := observation.Timestamp.Weekday().String()

		sums[day] += observation.Ridership
		counts[day] += 1
	}

	factors := map[string]float64{}

	for _, day := range dayNames {
		if counts[day] == 0 || avgRidership == 0 {
			factors[day] = 1.0
			continue
		}

		factors[day] = (sums[day] / float64(counts[day])) / avgRidership
	}

	return factors
}

func buildTimePatterns(observations []ingest.Observation, avgRidership float64) []float64 {
	sums := map[int]float64{}
	counts := map[int]int{}

	for _, observation := range observations {
		bin := TimeBin(observation.Timestamp.Hour(), observation.Timestamp.Minute())

		sums[bin] += observation.Ridership
		counts[bin] += 1
	}

	patterns := make([]float64, TimeBinCount)

	observedBins := maps.Keys(counts)
	slices.Sort(observedBins)

	for bin := 0; bin < TimeBinCount; bin++ {
		nearest, found := nearestBin(observedBins, bin)

		if !found || avgRidership == 0 {
			patterns[bin] = 1.0
			continue
		}

		patterns[bin] = (sums[nearest] / float64(counts[nearest])) / avgRidership
	}

	return patterns
}

// nearestBin finds the observed bin closest to target by absolute distance,
// preferring the lower bin on ties
func nearestBin(observedBins []int, target int) (int, bool) {
	if len(observedBins) == 0 {
		return 0, false
	}

	nearest := observedBins[0]

	for _, bin := range observedBins {
		if absInt(bin-target) < absInt(nearest-target) {
			nearest = bin
		}
	}

	return nearest, true
}

func buildDayTime(observations []ingest.Observation) map[string]map[int]float64 {
	type cellKey struct {
		day string
		bin int
	}

	dayCounts := map[string]int{}
	sums := map[cellKey]float64{}
	counts := map[cellKey]int{}

	for _, observation := range observations {
		day := observation.Timestamp.Weekday().String()
		bin := TimeBin(observation.Timestamp.Hour(), observation.Timestamp.Minute())

		dayCounts[day] += 1
		sums[cellKey{day: day, bin: bin}] += observation.Ridership
		counts[cellKey{day: day, bin: bin}] += 1
	}

	dayTime := map[string]map[int]float64{}

	for key, count := range counts {
		if dayCounts[key.day] < minDayObservations {
			continue
		}

		if dayTime[key.day] == nil {
			dayTime[key.day] = map[int]float64{}
		}

		dayTime[key.day][key.bin] = sums[key] / float64(count)
	}

	return dayTime
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}

	return n
}

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
