// Command storkctl scores pools offline, generates demo data and manages
// access codes.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/okian/stork/internal/adapters/repository"
	"github.com/okian/stork/pkg/logger"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// Flag names shared across commands.
const (
	flagDebug  = "debug"
	flagFormat = "format"
	flagDB     = "db"
	flagDriver = "driver"
)

var version = "v0.0.1-default" //nolint:gochecknoglobals // set by -ldflags

// ErrUsage marks invalid flag combinations.
var ErrUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		logger.Get().Error(ctx, "fatal error", logger.Error(err))
		os.Exit(1)
	}
}

// newApp builds a fresh command tree. Flags keep parsed state, so every run
// gets its own.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "storkctl",
		Version: version,
		Usage:   "Tools for the baby prediction pool",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "Prints verbose logs",
			},
			&cli.StringFlag{
				Name:  flagFormat,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
		},
		Commands: []*cli.Command{
			winnersCmd(),
			demoCmd(),
			codesCmd(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if err := logger.Init(logger.WithOutput(errWriter(cmd))); err != nil {
				return ctx, err
			}
			if cmd.Bool(flagDebug) {
				_ = logger.SetLevelString("debug")
			}
			switch f := cmd.String(flagFormat); f {
			case formatJSON, formatYAML, "yml":
			default:
				return ctx, fmt.Errorf("%w: unknown format %q", ErrUsage, f)
			}
			return ctx, nil
		},
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagDB,
			Usage:   "Database DSN (SQLite file path or PostgreSQL URL)",
			Sources: cli.EnvVars("STORK_DB_DSN"),
		},
		&cli.StringFlag{
			Name:    flagDriver,
			Usage:   "Database driver [sqlite, postgres]",
			Value:   repository.DriverSQLite,
			Sources: cli.EnvVars("STORK_DB_DRIVER"),
		},
	}
}

// openStore opens the database named by the db and driver flags.
func openStore(ctx context.Context, cmd *cli.Command) (*repository.SQLStore, error) {
	dsn := cmd.String(flagDB)
	if dsn == "" {
		return nil, fmt.Errorf("%w: --db is required", ErrUsage)
	}
	return repository.Open(ctx, cmd.String(flagDriver), dsn)
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
