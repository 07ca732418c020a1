package predict

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crzmap/crzmap/pkg/model"
	"github.com/crzmap/crzmap/pkg/stations"
)

type Mode string

const (
	ModeFull     Mode = "full"
	ModeDegraded Mode = "degraded"
)

type Prediction struct {
	Station string
	Value   float64
}

type Result struct {
	Mode        Mode
	ForTime     string
	ForDay      string
	Predictions []Prediction
}

// Predictor produces one ridership estimate per registered station for a
// (time, day) query. It holds only immutable state after construction, each
// Predict call draws from a fresh RNG so concurrent calls are safe.
type Predictor struct {
	registry *stations.Registry
	artifact *model.Artifact

	newRand func() *rand.Rand
	now     func() time.Time
}

type Option func(*Predictor)

// WithRandSource replaces the per-call RNG factory, used by tests to pin the
// jitter draws
func WithRandSource(factory func() *rand.Rand) Option {
	return func(p *Predictor) {
		p.newRand = factory
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Predictor) {
		p.now = now
	}
}

// NewPredictor builds a predictor over the loaded artifact. A nil artifact
// puts the predictor into degraded mode, where every station receives a
// plausible randomised value shaped by time of day.
func NewPredictor(registry *stations.Registry, artifact *model.Artifact, options ...Option) *Predictor {
	predictor := &Predictor{
		registry: registry,
		artifact: artifact,

		// Seeded from the wall clock on every call, so concurrent calls
		// never share RNG state
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		now: time.Now,
	}

	for _, option := range options {
		option(predictor)
	}

	return predictor
}

var dayMap = map[string]string{
	"monday":    "Monday",
	"tuesday":   "Tuesday",
	"wednesday": "Wednesday",
	"thursday":  "Thursday",
	"friday":    "Friday",
	"saturday":  "Saturday",
	"sunday":    "Sunday",
	"weekday":   "Weekday",
	"weekend":   "Weekend",
	"weekdays":  "Weekday",
	"weekends":  "Weekend",
	"all":       "All",
}

var weekdayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
var weekendNames = []string{"Saturday", "Sunday"}

func (p *Predictor) parseTime(timeStr string) (int, int) {
	parsed, err := time.Parse("15:04", timeStr)
	if err != nil {
		now := p.now()

		if timeStr != "" {
			log.Debug().Str("time", timeStr).Msg("Falling back to current time for unparseable query")
		}

		return now.Hour(), now.Minute()
	}

	return parsed.Hour(), parsed.Minute()
}

func parseDay(dayStr string) string {
	if day, exists := dayMap[strings.ToLower(strings.TrimSpace(dayStr))]; exists {
		return day
	}

	return "Weekday"
}

func isAggregateDay(day string) bool {
	return day == "Weekday" || day == "Weekend" || day == "All"
}

// Predict evaluates the query for every registered station, in registry
// order. Malformed parameters never fail, they substitute defaults.
func (p *Predictor) Predict(timeStr string, dayStr string) Result {
	rng := p.newRand()

	hour, minute := p.parseTime(timeStr)
	timeBin := model.TimeBin(hour, minute)
	day := parseDay(dayStr)

	result := Result{
		Mode:    ModeFull,
		ForTime: fmt.Sprintf("%02d:%02d", hour, minute),
		ForDay:  day,
	}

	if p.artifact == nil {
		result.Mode = ModeDegraded

		for _, station := range p.registry.Stations() {
			base := 200 + rng.Float64()*600

			result.Predictions = append(result.Predictions, Prediction{
				Station: station.Name,
				Value:   round2(base * degradedMultiplier(hour)),
			})
		}

		return result
	}

	for _, station := range p.registry.Stations() {
		result.Predictions = append(result.Predictions, Prediction{
			Station: station.Name,
			Value:   p.predictStation(rng, station.Name, day, hour, timeBin),
		})
	}

	return result
}

func (p *Predictor) predictStation(rng *rand.Rand, station string, day string, hour int, timeBin int) float64 {
	stationModel, exists := p.artifact.ByStation[station]
	if !exists {
		return round2(100 + rng.Float64()*900)
	}

	prediction := 0.0
	specificCell := false

	if !isAggregateDay(day) {
		if cell, cellExists := p.artifact.DayTime[station][day][timeBin]; cellExists {
			prediction = cell
			specificCell = true
		}
	}

	if !specificCell {
		prediction = stationModel.AvgRidership * p.dayFactor(station, day) * p.timeFactor(station, timeBin)

		// Time of day shaping only applies to the factor product, a
		// specific cell already reflects its own hour
		prediction *= timeOfDayOverlay(hour)
	}

	prediction *= 0.9 + rng.Float64()*0.2

	return round2(math.Max(10, prediction))
}

func (p *Predictor) timeFactor(station string, timeBin int) float64 {
	patterns := p.artifact.TimePatterns[station]
	if timeBin < 0 || timeBin >= len(patterns) {
		return 1.0
	}

	return patterns[timeBin]
}

func (p *Predictor) dayFactor(station string, day string) float64 {
	factors := p.artifact.DayFactors[station]

	switch day {
	case "All":
		return 1.0
	case "Weekday":
		return meanPresentFactors(factors, weekdayNames)
	case "Weekend":
		return meanPresentFactors(factors, weekendNames)
	default:
		if factor, exists := factors[day]; exists {
			return factor
		}

		return 1.0
	}
}

func meanPresentFactors(factors map[string]float64, days []string) float64 {
	total := 0.0
	count := 0

	for _, day := range days {
		if factor, exists := factors[day]; exists {
			total += factor
			count += 1
		}
	}

	if count == 0 {
		return 1.0
	}

	return total / float64(count)
}

func timeOfDayOverlay(hour int) float64 {
	switch {
	case hour >= 0 && hour < 5:
		// Gradual ramp up from midnight to 5am
		return 0.5 * float64(hour+1) / 5
	case hour >= 7 && hour <= 9:
		return 1.5
	case hour >= 16 && hour <= 19:
		return 1.4
	case hour >= 22 && hour < 24:
		return 0.7
	default:
		return 1.0
	}
}

func degradedMultiplier(hour int) float64 {
	switch {
	case hour >= 7 && hour <= 9:
		return 2.5
	case hour >= 16 && hour <= 19:
		return 2.3
	case hour >= 22 || hour <= 5:
		return 0.4
	default:
		return 1.0
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
