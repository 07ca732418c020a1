package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/crzmap/crzmap/pkg/api"
	"github.com/crzmap/crzmap/pkg/ingest"
	"github.com/crzmap/crzmap/pkg/model"
	"github.com/crzmap/crzmap/pkg/predict"
	"github.com/crzmap/crzmap/pkg/tollzone"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("CRZMAP_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("CRZMAP_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "crzmap",
		Description: "Single binary of truth for crzmap - ridership predictions and congestion-zone aggregation",

		Commands: []*cli.Command{
			ingest.RegisterCLI(),
			model.RegisterCLI(),
			predict.RegisterCLI(),
			tollzone.RegisterCLI(),
			api.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
