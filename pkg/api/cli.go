package api

import (
	"errors"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/crzmap/crzmap/pkg/api/routes"
	"github.com/crzmap/crzmap/pkg/config"
	"github.com/crzmap/crzmap/pkg/model"
	"github.com/crzmap/crzmap/pkg/predict"
	"github.com/crzmap/crzmap/pkg/stations"
	"github.com/crzmap/crzmap/pkg/tollzone"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the map query API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Get()
					if err != nil {
						return err
					}

					registry, err := stations.LoadRegistry(cfg.RegistryPath)
					if err != nil {
						return err
					}

					artifact, err := model.Load(cfg.ModelPath)
					if errors.Is(err, os.ErrNotExist) {
						log.Warn().Str("path", cfg.ModelPath).Msg("Model artifact missing - serving degraded predictions")
						artifact = nil
					} else if err != nil {
						return err
					}

					classTables, err := tollzone.LoadClassTables(cfg.TollDataDir)
					if err != nil {
						return err
					}

					taxiRows, err := tollzone.LoadTaxiTable(cfg.TaxiPath)
					if err != nil {
						log.Warn().Err(err).Str("path", cfg.TaxiPath).Msg("Taxi prediction table unavailable")
					}

					apiContext := &routes.Context{
						Registry:  registry,
						Predictor: predict.NewPredictor(registry, artifact),

						Aggregator:  tollzone.NewAggregator(),
						ClassTables: classTables,
						TaxiRows:    taxiRows,
					}

					return SetupServer(c.String("listen"), apiContext)
				},
			},
		},
	}
}
