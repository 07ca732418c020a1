package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crzmap/crzmap/pkg/ingest"
)

// hourlyObservations produces count hourly observations for a station
// starting at start, with ridership taken from the values slice cyclically
func hourlyObservations(station string, start time.Time, count int, values []float64) []ingest.Observation {
	observations := make([]ingest.Observation, count)

	for index := 0; index < count; index++ {
		observations[index] = ingest.Observation{
			Timestamp: start.Add(time.Duration(index) * time.Hour),
			Station:   station,
			Ridership: values[index%len(values)],
		}
	}

	return observations
}

func TestBuildSkipsSparseStations(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	observations := hourlyObservations("Sparse St", start, 23, []float64{100})
	observations = append(observations, hourlyObservations("Busy St", start, 24, []float64{100})...)

	artifact := Build(observations)

	assert.NotContains(t, artifact.ByStation, "Sparse St")
	assert.Contains(t, artifact.ByStation, "Busy St")
}

func TestBuildAverageAndDayFactors(t *testing.T) {
	// 2025-03-03 is a Monday. 48 hourly observations cover Monday and
	// Tuesday, with Monday double Tuesday's ridership.
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	var observations []ingest.Observation
	observations = append(observations, hourlyObservations("14 St", start, 24, []float64{200})...)
	observations = append(observations, hourlyObservations("14 St", start.AddDate(0, 0, 1), 24, []float64{100})...)

	artifact := Build(observations)

	stationModel, exists := artifact.ByStation["14 St"]
	require.True(t, exists)
	assert.InDelta(t, 150.0, stationModel.AvgRidership, 1e-9)

	factors := artifact.DayFactors["14 St"]
	assert.InDelta(t, 200.0/150.0, factors["Monday"], 1e-9)
	assert.InDelta(t, 100.0/150.0, factors["Tuesday"], 1e-9)

	// Days without data default to 1.0
	assert.Equal(t, 1.0, factors["Sunday"])
}

func TestBuildTimePatternsNearestBinFill(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	// Hourly observations only populate bins 0, 6, 12, ... so the bins in
	// between must be filled from their nearest observed neighbour
	var observations []ingest.Observation
	for day := 0; day < 2; day++ {
		for hour := 0; hour < 24; hour++ {
			ridership := 100.0
			if hour == 8 {
				ridership = 400.0
			}

			observations = append(observations, ingest.Observation{
				Timestamp: start.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour),
				Station:   "14 St",
				Ridership: ridership,
			})
		}
	}

	artifact := Build(observations)

	patterns := artifact.TimePatterns["14 St"]
	require.Len(t, patterns, TimeBinCount)

	avg := artifact.ByStation["14 St"].AvgRidership

	// Observed bin: 08:00 is bin 48
	assert.InDelta(t, 400.0/avg, patterns[48], 1e-9)

	// Unobserved bins 49 and 50 fall back to bin 48
	assert.InDelta(t, 400.0/avg, patterns[49], 1e-9)
	assert.InDelta(t, 400.0/avg, patterns[50], 1e-9)

	// Bin 51 is equidistant from 48 and 54, ties prefer the lower bin
	assert.InDelta(t, 400.0/avg, patterns[51], 1e-9)

	// Bin 52 is nearer 54 (09:00)
	assert.InDelta(t, 100.0/avg, patterns[52], 1e-9)
}

func TestBuildDayTimeCells(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	// 24 Monday observations and 4 Tuesday observations: only Monday
	// clears the per-day threshold
	var observations []ingest.Observation
	observations = append(observations, hourlyObservations("14 St", start, 24, []float64{300})...)
	observations = append(observations, hourlyObservations("14 St", start.AddDate(0, 0, 1), 4, []float64{50})...)

	artifact := Build(observations)

	dayTime := artifact.DayTime["14 St"]
	require.Contains(t, dayTime, "Monday")
	assert.NotContains(t, dayTime, "Tuesday")

	// 08:00 Monday is bin 48
	assert.InDelta(t, 300.0, dayTime["Monday"][48], 1e-9)
}

func TestBuildARParams(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	// A varied series long enough for the AR fit
	values := []float64{120, 340, 560, 230, 80, 410, 615, 295, 150, 505}
	observations := hourlyObservations("14 St", start, 60, values)

	artifact := Build(observations)

	params := artifact.ByStation["14 St"].ARParams
	require.Len(t, params, 4)

	for _, param := range params {
		assert.False(t, math.IsNaN(param))
		assert.False(t, math.IsInf(param, 0))
	}
}

func TestBuildDeterministic(t *testing.T) {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	values := []float64{120, 340, 560, 230, 80, 410}
	observations := hourlyObservations("14 St", start, 48, values)
	observations = append(observations, hourlyObservations("6 Av", start, 36, []float64{90, 180, 270})...)

	first := Build(observations)
	second := Build(observations)

	assert.Equal(t, first, second)
}

func TestFitAR3TooShort(t *testing.T) {
	_, err := FitAR3([]float64{1, 2, 3, 4, 5})
	assert.Error(t, err)
}

func TestFitAR3Deterministic(t *testing.T) {
	series := make([]float64, 40)
	for index := range series {
		series[index] = 100 + 50*math.Sin(float64(index)) + float64(index%7)*13
	}

	first, err := FitAR3(series)
	require.NoError(t, err)
	require.Len(t, first, 4)

	second, err := FitAR3(series)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTimeBin(t *testing.T) {
	assert.Equal(t, 0, TimeBin(0, 0))
	assert.Equal(t, 51, TimeBin(8, 30))
	assert.Equal(t, 72, TimeBin(12, 0))
	assert.Equal(t, 143, TimeBin(23, 59))
}
