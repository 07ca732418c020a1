package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/crzmap/crzmap/pkg/config"
	"github.com/crzmap/crzmap/pkg/stations"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Pull historical ridership data from the open-data endpoint",
		Subcommands: []*cli.Command{
			{
				Name:  "fetch",
				Usage: "fetch a window of history and write the local cache",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "days",
						Value: 30,
						Usage: "number of days of history to fetch",
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

					ingestor := NewIngestor(cfg.DataEndpoint, registry)
					ingestor.Limit = cfg.FetchLimit
					ingestor.WindowSize = time.Duration(cfg.FetchWindowDays) * 24 * time.Hour
					ingestor.RequestDelay = time.Duration(cfg.RequestDelayMS) * time.Millisecond
					ingestor.RequestTimeout = time.Duration(cfg.RequestTimeoutMS) * time.Millisecond

					end := time.Now()
					start := end.AddDate(0, 0, -c.Int("days"))

					result, err := ingestor.Fetch(context.Background(), start, end)
					if err != nil {
						return err
					}

					for _, gap := range result.Gaps {
						log.Warn().
							Time("start", gap.Start).
							Time("end", gap.End).
							Msg("Window skipped during fetch")
					}

					return WriteCache(cfg.CachePath, result.Raw)
				},
			},
		},
	}
}
