package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/okian/stork/internal/demodata"
)

const (
	flagCount      = "count"
	flagSeed       = "seed"
	flagURL        = "url"
	flagAdminEmail = "admin-email"
	flagWorkers    = "workers"
	flagTimeout    = "timeout"
)

func demoCmd() *cli.Command {
	return &cli.Command{
		Name:    "demo",
		Aliases: []string{"d"},
		Usage:   "Generate sample predictions and an actual result",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  flagCount,
				Usage: "Number of predictions to generate",
				Value: demodata.DefaultCount,
			},
			&cli.IntFlag{
				Name:  flagSeed,
				Usage: "Random seed; the same seed yields the same data",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  flagURL,
				Usage: "Replay the data against a running server at this base URL",
			},
			&cli.StringFlag{
				Name:    flagAdminEmail,
				Usage:   "With --url, also enter the actual result and fetch winners",
				Sources: cli.EnvVars("STORK_ADMIN_EMAIL"),
			},
			&cli.IntFlag{
				Name:  flagWorkers,
				Usage: "Concurrent submissions when replaying",
				Value: demodata.DefaultWorkers,
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Usage: "Per request timeout when replaying",
				Value: demodata.DefaultTimeout,
			},
		},
		Action: cmdDemo,
	}
}

func cmdDemo(ctx context.Context, cmd *cli.Command) error {
	count := cmd.Int(flagCount)
	if count <= 0 {
		return fmt.Errorf("%w: --count must be positive", ErrUsage)
	}
	ds := demodata.Generate(int(count), uint64(cmd.Int(flagSeed))) //nolint:gosec // seed bits are reinterpreted on purpose

	url := cmd.String(flagURL)
	if url == "" {
		return writeOutput(outWriter(cmd), cmd.String(flagFormat), ds)
	}

	stats, err := demodata.Replay(ctx, demodata.ReplayConfig{
		BaseURL:    url,
		AdminEmail: cmd.String(flagAdminEmail),
		Workers:    int(cmd.Int(flagWorkers)),
		Timeout:    cmd.Duration(flagTimeout),
	}, ds)
	if err != nil {
		return err
	}
	stats.Duration = stats.Duration.Round(time.Millisecond)
	return writeOutput(outWriter(cmd), cmd.String(flagFormat), stats)
}
