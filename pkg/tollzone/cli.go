package tollzone

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/crzmap/crzmap/pkg/config"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "tollzone",
		Usage: "Aggregate congestion-zone vehicle entry predictions",
		Subcommands: []*cli.Command{
			{
				Name:  "aggregate",
				Usage: "fuse the per-class tables into a time x region total",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "exclude",
						Usage: "vehicle classes to leave out",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Get()
					if err != nil {
						return err
					}

					tables, err := LoadClassTables(cfg.TollDataDir)
					if err != nil {
						return err
					}

					toggles := map[VehicleClass]bool{}
					for _, vehicleClass := range AllClasses {
						toggles[vehicleClass] = true
					}
					for _, excluded := range c.StringSlice("exclude") {
						toggles[VehicleClass(excluded)] = false
					}

					records := NewAggregator().Aggregate(tables, toggles)

					for _, record := range records {
						fmt.Printf("%-22s %-24s %12.2f\n", record.Time, record.Region, record.PredictionCRZ)
					}

					return nil
				},
			},
		},
	}
}
