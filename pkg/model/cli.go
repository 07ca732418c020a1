package model

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/crzmap/crzmap/pkg/config"
	"github.com/crzmap/crzmap/pkg/ingest"
	"github.com/crzmap/crzmap/pkg/stations"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "model",
		Usage: "Build the ridership prediction model",
		Subcommands: []*cli.Command{
			{
				Name:  "build",
				Usage: "fit the model from the local cache and write the artifact",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "fetch",
						Usage: "fetch fresh data instead of reading the cache",
					},
					&cli.IntFlag{
						Name:  "days",
						Value: 30,
						Usage: "days of history to fetch when --fetch is set",
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

					var rawRows []ingest.RawRow

					if c.Bool("fetch") {
						ingestor := ingest.NewIngestor(cfg.DataEndpoint, registry)
						ingestor.Limit = cfg.FetchLimit

						end := time.Now()
						start := end.AddDate(0, 0, -c.Int("days"))

						result, err := ingestor.Fetch(context.Background(), start, end)
						if err != nil {
							return err
						}

						rawRows = result.Raw
					} else {
						rawRows, err = ingest.ReadCache(cfg.CachePath)
						if err != nil {
							return err
						}
					}

					observations := ingest.Consolidate(rawRows, registry)
					if len(observations) == 0 {
						return errors.New("no usable observations to build from")
					}

					artifact := Build(observations)

					return artifact.Save(cfg.ModelPath)
				},
			},
		},
	}
}
