package predict

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/crzmap/crzmap/pkg/config"
	"github.com/crzmap/crzmap/pkg/model"
	"github.com/crzmap/crzmap/pkg/stations"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Run one-shot ridership predictions",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "predict ridership for every registered station",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "time",
						Usage: "time of day as HH:MM (default current time)",
					},
					&cli.StringFlag{
						Name:  "day",
						Value: "weekday",
						Usage: "day of week, or weekday/weekend/all",
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
						log.Warn().Str("path", cfg.ModelPath).Msg("Model artifact missing - degraded predictions")
					} else if err != nil {
						return err
					}

					predictor := NewPredictor(registry, artifact)
					result := predictor.Predict(c.String("time"), c.String("day"))

					fmt.Printf("mode=%s time=%s day=%s\n", result.Mode, result.ForTime, result.ForDay)
					for _, prediction := range result.Predictions {
						fmt.Printf("%-40s %10.2f\n", prediction.Station, prediction.Value)
					}

					return nil
				},
			},
		},
	}
}
