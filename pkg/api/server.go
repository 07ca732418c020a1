package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crzmap/crzmap/pkg/api/routes"
)

func NewApp(apiContext *routes.Context) *fiber.App {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/api")

	routes.RidershipRouter(group, apiContext)
	routes.TollZoneRouter(group, apiContext)

	return webApp
}

func SetupServer(listen string, apiContext *routes.Context) error {
	return NewApp(apiContext).Listen(listen)
}
