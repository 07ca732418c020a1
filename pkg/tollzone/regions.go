package tollzone

import (
	"strings"

	"github.com/crzmap/crzmap/pkg/util"
)

type regionCoords struct {
	Latitude  float64
	Longitude float64
}

// Fixed coordinates for the recognised congestion-relief-zone detection
// regions, keyed by normalised region name
var knownRegions = map[string]regionCoords{
	"brooklyn bridge":       {40.7061, -73.9969},
	"east 60th street":      {40.7616, -73.9641},
	"west 60th street":      {40.7690, -73.9851},
	"fdr drive at 60th st":  {40.7600, -73.9584},
	"holland tunnel":        {40.7256, -74.0119},
	"hugh l. carey tunnel":  {40.7003, -74.0146},
	"lincoln tunnel":        {40.7608, -74.0021},
	"manhattan bridge":      {40.7075, -73.9908},
	"queens midtown tunnel": {40.7440, -73.9713},
	"queensboro bridge":     {40.7570, -73.9541},
	"williamsburg bridge":   {40.7131, -73.9722},
}

// NormalizeRegion folds the different spellings of the 60th street detection
// regions onto single keys. The operation is idempotent.
func NormalizeRegion(region string) string {
	normalized := strings.ToLower(util.CollapseWhitespace(region))

	if strings.Contains(normalized, "60th") {
		if strings.Contains(normalized, "east") {
			return "east 60th street"
		}

		if strings.Contains(normalized, "west") {
			return "west 60th street"
		}
	}

	return normalized
}
