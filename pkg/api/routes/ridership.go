package routes

import (
	"github.com/gofiber/fiber/v2"
)

func RidershipRouter(router fiber.Router, apiContext *Context) {
	router.Get("/ridership-predictions", func(c *fiber.Ctx) error {
		return getRidershipPredictions(c, apiContext)
	})
}

type stationPrediction struct {
	Station       string  `json:"station"`
	RidershipPred float64 `json:"ridership_pred"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

type ridershipResponse struct {
	Mode        string              `json:"mode"`
	ForTime     string              `json:"for_time"`
	ForDay      string              `json:"for_day"`
	Predictions []stationPrediction `json:"predictions"`
}

func getRidershipPredictions(c *fiber.Ctx, apiContext *Context) error {
	result := apiContext.Predictor.Predict(c.Query("time"), c.Query("day"))

	response := ridershipResponse{
		Mode:        string(result.Mode),
		ForTime:     result.ForTime,
		ForDay:      result.ForDay,
		Predictions: []stationPrediction{},
	}

	for _, prediction := range result.Predictions {
		latitude, longitude, exists := apiContext.Registry.Coords(prediction.Station)
		if !exists {
			// Stations without coordinates cant be placed on the map
			continue
		}

		response.Predictions = append(response.Predictions, stationPrediction{
			Station:       prediction.Station,
			RidershipPred: prediction.Value,
			Latitude:      latitude,
			Longitude:     longitude,
		})
	}

	return c.JSON(response)
}
