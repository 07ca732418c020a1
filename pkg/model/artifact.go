package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrModelLoad is returned when the artifact file exists but cannot be
// decoded
var ErrModelLoad = errors.New("model artifact load error")

const schemaVersion = 1

// TimeBinCount is the number of 10 minute bins in a day
const TimeBinCount = 144

// TimeBin maps a time of day onto its 10 minute bin in [0, 143]
func TimeBin(hour int, minute int) int {
	return (hour*60 + minute) / 10
}

type StationModel struct {
	AvgRidership float64
	// ARParams holds [intercept, lag1, lag2, lag3] when an autoregressive
	// fit succeeded for the station. Stored for offline analysis, the
	// predictor reads only the factor model.
	ARParams []float64
}

// Artifact is the complete fitted model, keyed by normalised station name
// throughout. It is built offline, loaded once and read-only afterwards.
type Artifact struct {
	ByStation map[string]StationModel

	// DayFactors maps station -> day name -> multiplicative factor
	DayFactors map[string]map[string]float64

	// TimePatterns maps station -> dense per-bin factors of length
	// TimeBinCount
	TimePatterns map[string][]float64

	// DayTime maps station -> day name -> time bin -> direct estimate,
	// sparse by design
	DayTime map[string]map[string]map[int]float64
}

type stationModelDoc struct {
	AvgRidership float64   `bson:"avg_ridership"`
	ARParams     []float64 `bson:"ar_params,omitempty"`
}

type dayTimeCell struct {
	Day   string  `bson:"day"`
	Bin   int32   `bson:"bin"`
	Value float64 `bson:"value"`
}

type artifactDoc struct {
	ByStation        map[string]stationModelDoc    `bson:"by_station"`
	DayOfWeekFactors map[string]map[string]float64 `bson:"day_of_week_factors"`
	TimePatterns     map[string][]float64          `bson:"time_patterns"`
	ByDayAndTime     map[string][]dayTimeCell      `bson:"by_day_and_time"`
}

type artifactEnvelope struct {
	SchemaVersion int32       `bson:"schema_version"`
	Artifact      artifactDoc `bson:"artifact"`
}

func (a *Artifact) toDoc() artifactDoc {
	doc := artifactDoc{
		ByStation:        map[string]stationModelDoc{},
		DayOfWeekFactors: a.DayFactors,
		TimePatterns:     a.TimePatterns,
		ByDayAndTime:     map[string][]dayTimeCell{},
	}

	for station, stationModel := range a.ByStation {
		doc.ByStation[station] = stationModelDoc{
			AvgRidership: stationModel.AvgRidership,
			ARParams:     stationModel.ARParams,
		}
	}

	for station, days := range a.DayTime {
		for day, bins := range days {
			for bin, value := range bins {
				doc.ByDayAndTime[station] = append(doc.ByDayAndTime[station], dayTimeCell{
					Day:   day,
					Bin:   int32(bin),
					Value: value,
				})
			}
		}
	}

	return doc
}

func (doc artifactDoc) toArtifact() *Artifact {
	artifact := &Artifact{
		ByStation:    map[string]StationModel{},
		DayFactors:   doc.DayOfWeekFactors,
		TimePatterns: doc.TimePatterns,
		DayTime:      map[string]map[string]map[int]float64{},
	}

	if artifact.DayFactors == nil {
		artifact.DayFactors = map[string]map[string]float64{}
	}
	if artifact.TimePatterns == nil {
		artifact.TimePatterns = map[string][]float64{}
	}

	for station, stationModel := range doc.ByStation {
		artifact.ByStation[station] = StationModel{
			AvgRidership: stationModel.AvgRidership,
			ARParams:     stationModel.ARParams,
		}
	}

	for station, cells := range doc.ByDayAndTime {
		days := map[string]map[int]float64{}

		for _, cell := range cells {
			if days[cell.Day] == nil {
				days[cell.Day] = map[int]float64{}
			}

			days[cell.Day][int(cell.Bin)] = cell.Value
		}

		artifact.DayTime[station] = days
	}

	return artifact
}

// Save serialises the artifact as a single versioned BSON blob
func (a *Artifact) Save(path string) error {
	blob, err := bson.Marshal(artifactEnvelope{
		SchemaVersion: schemaVersion,
		Artifact:      a.toDoc(),
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	if err := os.WriteFile(path, blob, 0644); err != nil {
		return err
	}

	log.Info().Str("path", path).Int("stations", len(a.ByStation)).Msg("Wrote model artifact")

	return nil
}

// Load reads an artifact blob. A missing file is reported with os.ErrNotExist
// so callers can fall back to degraded predictions, any other failure is a
// ErrModelLoad.
func Load(path string) (*Artifact, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var envelope artifactEnvelope
	if err := bson.Unmarshal(blob, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, err.Error())
	}

	if envelope.SchemaVersion != schemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrModelLoad, envelope.SchemaVersion)
	}

	return envelope.Artifact.toArtifact(), nil
}
