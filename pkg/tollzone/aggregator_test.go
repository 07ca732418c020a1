package tollzone

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureTables() map[VehicleClass][]ClassRow {
	tables := map[VehicleClass][]ClassRow{}

	for _, vehicleClass := range AllClasses {
		tables[vehicleClass] = []ClassRow{
			{TimeBlock: "2025-03-03 07:00:00", Region: "East 60th St", Entries: "10"},
			{TimeBlock: "2025-03-03 07:10:00", Region: "Lincoln Tunnel", Entries: "20"},
			{TimeBlock: "2025-03-03 07:20:00", Region: "Brooklyn Bridge", Entries: "30"},
		}
	}

	return tables
}

func allToggles(enabled bool) map[VehicleClass]bool {
	toggles := map[VehicleClass]bool{}
	for _, vehicleClass := range AllClasses {
		toggles[vehicleClass] = enabled
	}

	return toggles
}

func totalEntries(records []AggregateRecord) float64 {
	total := 0.0
	for _, record := range records {
		total += record.PredictionCRZ
	}

	return total
}

func TestAggregateSumConservation(t *testing.T) {
	records := NewAggregator().Aggregate(fixtureTables(), allToggles(true))

	// 6 classes x (10 + 20 + 30)
	assert.Equal(t, 360.0, totalEntries(records))

	// One record per distinct (time block, region)
	require.Len(t, records, 3)
}

func TestAggregateRespectsToggles(t *testing.T) {
	toggles := allToggles(true)
	toggles[ClassBuses] = false
	toggles[ClassTaxiFHV] = false

	records := NewAggregator().Aggregate(fixtureTables(), toggles)

	assert.Equal(t, 240.0, totalEntries(records))
}

func TestAggregateCoercesBadEntries(t *testing.T) {
	tables := map[VehicleClass][]ClassRow{
		ClassCars: {
			{TimeBlock: "2025-03-03 07:00:00", Region: "Lincoln Tunnel", Entries: "15"},
			{TimeBlock: "2025-03-03 07:00:00", Region: "Lincoln Tunnel", Entries: "NaN"},
			{TimeBlock: "2025-03-03 07:00:00", Region: "Lincoln Tunnel", Entries: ""},
		},
	}

	records := NewAggregator().Aggregate(tables, allToggles(true))

	require.Len(t, records, 1)
	assert.Equal(t, 15.0, records[0].PredictionCRZ)
}

func TestAggregateMergesSixtiethStreetSpellings(t *testing.T) {
	tables := map[VehicleClass][]ClassRow{
		ClassCars: {
			{TimeBlock: "2025-03-03 07:00:00", Region: "East 60th St", Entries: "5"},
			{TimeBlock: "2025-03-03 07:00:00", Region: "east  60th  street", Entries: "7"},
			{TimeBlock: "2025-03-03 07:00:00", Region: "West Side Highway at 60th St", Entries: "3"},
		},
	}

	records := NewAggregator().Aggregate(tables, allToggles(true))

	require.Len(t, records, 2)

	assert.Equal(t, "east 60th street", records[0].Region)
	assert.Equal(t, 12.0, records[0].PredictionCRZ)

	assert.Equal(t, "west 60th street", records[1].Region)
	assert.Equal(t, 3.0, records[1].PredictionCRZ)
}

func TestAggregateCoordinates(t *testing.T) {
	tables := map[VehicleClass][]ClassRow{
		ClassCars: {
			{TimeBlock: "2025-03-03 07:00:00", Region: "Lincoln Tunnel", Entries: "5"},
			{TimeBlock: "2025-03-03 07:00:00", Region: "Atlantis Gate", Entries: "5"},
		},
	}

	records := NewAggregator().Aggregate(tables, allToggles(true))
	require.Len(t, records, 2)

	// Unknown regions keep null coordinates
	assert.Equal(t, "atlantis gate", records[0].Region)
	assert.Nil(t, records[0].Latitude)
	assert.Nil(t, records[0].Longitude)

	require.NotNil(t, records[1].Latitude)
	assert.Equal(t, 40.7608, *records[1].Latitude)
	assert.Equal(t, -74.0021, *records[1].Longitude)
}

func TestAggregateConcurrentUnknownRegions(t *testing.T) {
	aggregator := NewAggregator()

	tables := map[VehicleClass][]ClassRow{
		ClassCars: {
			{TimeBlock: "2025-03-03 07:00:00", Region: "Atlantis Gate", Entries: "1"},
			{TimeBlock: "2025-03-03 07:00:00", Region: "Narnia Wardrobe", Entries: "2"},
		},
	}
	toggles := allToggles(true)

	var wg sync.WaitGroup

	for worker := 0; worker < 8; worker++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for iteration := 0; iteration < 50; iteration++ {
				records := aggregator.Aggregate(tables, toggles)
				assert.Len(t, records, 2)
			}
		}()
	}

	wg.Wait()
}

func TestNormalizeRegionIdempotent(t *testing.T) {
	inputs := []string{
		"  East 60th  St ",
		"West Side Highway at 60th St",
		"Lincoln Tunnel",
		"Atlantis Gate",
	}

	for _, input := range inputs {
		once := NormalizeRegion(input)
		assert.Equal(t, once, NormalizeRegion(once), "input %q", input)
	}
}

func TestAlignTaxi(t *testing.T) {
	timeBlocks := []string{
		"2025-03-03 07:00:00",
		"2025-03-03 07:10:00",
		"2025-03-03 07:20:00",
	}

	taxiRows := []TaxiRow{
		{TimeInterval: "2025-03-03 07:00:00", Count: "4", LocationID: "100"},
		{TimeInterval: "2025-03-03 07:00:00", Count: "6", LocationID: "100"},
		{TimeInterval: "2025-03-03 07:10:00", Count: "2", LocationID: "161"},
		// Beyond the aggregation grid, trimmed
		{TimeInterval: "2025-03-03 09:00:00", Count: "9", LocationID: "100"},
	}

	pivot := AlignTaxi(taxiRows, timeBlocks)

	// The row index is exactly the aggregation time-block set
	assert.Equal(t, timeBlocks, pivot.Index)
	assert.Equal(t, []string{"100", "161"}, pivot.Locations)

	// Duplicate (interval, location) rows sum
	assert.Equal(t, 10.0, pivot.Counts["2025-03-03 07:00:00"]["100"])

	// Missing cells fill with zero
	assert.Equal(t, 0.0, pivot.Counts["2025-03-03 07:00:00"]["161"])
	assert.Equal(t, 0.0, pivot.Counts["2025-03-03 07:20:00"]["100"])
	assert.Equal(t, 2.0, pivot.Counts["2025-03-03 07:10:00"]["161"])
}

func TestAlignTaxiCoercesBadCounts(t *testing.T) {
	timeBlocks := []string{"2025-03-03 07:00:00", "2025-03-03 07:10:00"}

	taxiRows := []TaxiRow{
		{TimeInterval: "2025-03-03 07:00:00", Count: "not-a-number", LocationID: "236"},
		{TimeInterval: "2025-03-03 07:10:00", Count: "5", LocationID: "100"},
	}

	pivot := AlignTaxi(taxiRows, timeBlocks)

	// A location whose only rows have bad counts still gets a column
	require.Equal(t, []string{"100", "236"}, pivot.Locations)
	assert.Equal(t, 0.0, pivot.Counts["2025-03-03 07:00:00"]["236"])
	assert.Equal(t, 5.0, pivot.Counts["2025-03-03 07:10:00"]["100"])
}

func TestAlignTaxiEmptyGrid(t *testing.T) {
	pivot := AlignTaxi([]TaxiRow{{TimeInterval: "2025-03-03 07:00:00", Count: "4", LocationID: "100"}}, nil)

	assert.Empty(t, pivot.Index)
	assert.Empty(t, pivot.Counts)
}
