package routes

import (
	"github.com/crzmap/crzmap/pkg/predict"
	"github.com/crzmap/crzmap/pkg/stations"
	"github.com/crzmap/crzmap/pkg/tollzone"
)

// Context carries the immutable loaded state the routes read from. It is
// built once at startup and shared safely across request handlers.
type Context struct {
	Registry  *stations.Registry
	Predictor *predict.Predictor

	Aggregator  *tollzone.Aggregator
	ClassTables map[tollzone.VehicleClass][]tollzone.ClassRow
	TaxiRows    []tollzone.TaxiRow
}
