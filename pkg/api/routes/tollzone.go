package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crzmap/crzmap/pkg/tollzone"
)

func TollZoneRouter(router fiber.Router, apiContext *Context) {
	router.Get("/toll-entries", func(c *fiber.Ctx) error {
		return getTollEntries(c, apiContext)
	})
	router.Get("/taxi-pivot", func(c *fiber.Ctx) error {
		return getTaxiPivot(c, apiContext)
	})
}

func classToggles(c *fiber.Ctx) map[tollzone.VehicleClass]bool {
	toggles := map[tollzone.VehicleClass]bool{}

	for _, vehicleClass := range tollzone.AllClasses {
		toggles[vehicleClass] = c.QueryBool(string(vehicleClass), true)
	}

	return toggles
}

func getTollEntries(c *fiber.Ctx, apiContext *Context) error {
	records := apiContext.Aggregator.Aggregate(apiContext.ClassTables, classToggles(c))

	return c.JSON(records)
}

func getTaxiPivot(c *fiber.Ctx, apiContext *Context) error {
	records := apiContext.Aggregator.Aggregate(apiContext.ClassTables, classToggles(c))
	pivot := tollzone.AlignTaxi(apiContext.TaxiRows, tollzone.TimeBlocks(records))

	return c.JSON(pivot)
}
