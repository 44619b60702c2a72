package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/okian/stork/internal/domain/model"
	"github.com/okian/stork/pkg/logger"
)

const (
	flagCode        = "code"
	flagCodeType    = "type"
	flagDescription = "description"
	flagMaxUses     = "max-uses"
	flagExpires     = "expires"
	flagInactive    = "inactive"
	flagDefaults    = "defaults"
)

// defaultCodes are the unlimited codes handed out with the invitation.
var defaultCodes = []model.AccessCode{ //nolint:gochecknoglobals // read-only
	{Code: "FAMILY2026", Type: model.ConnectionFamily, Description: "Access code for family members", Active: true},
	{Code: "FRIENDS2026", Type: model.ConnectionFriends, Description: "Access code for friends", Active: true},
}

func codesCmd() *cli.Command {
	return &cli.Command{
		Name:    "codes",
		Aliases: []string{"c"},
		Usage:   "Access code operations",
		Commands: []*cli.Command{
			{
				Name:   "seed",
				Usage:  "Create or replace access codes",
				Action: cmdSeedCodes,
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: flagCode, Usage: "Access code; stored upper-case"},
					&cli.StringFlag{
						Name:  flagCodeType,
						Usage: "Who the code is for [family, friends]",
						Value: string(model.ConnectionFamily),
					},
					&cli.StringFlag{Name: flagDescription, Usage: "Free text shown to the admin"},
					&cli.IntFlag{Name: flagMaxUses, Usage: "Maximum redemptions; 0 means unlimited"},
					&cli.StringFlag{Name: flagExpires, Usage: "Expiry time (RFC 3339)"},
					&cli.BoolFlag{Name: flagInactive, Usage: "Store the code disabled"},
					&cli.BoolFlag{Name: flagDefaults, Usage: "Seed the standard family and friends codes instead of --code"},
				}, storeFlags()...),
			},
		},
	}
}

func cmdSeedCodes(ctx context.Context, cmd *cli.Command) error {
	codes := defaultCodes
	if !cmd.Bool(flagDefaults) {
		c, err := codeFromFlags(cmd)
		if err != nil {
			return err
		}
		codes = []model.AccessCode{c}
	}

	store, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for _, c := range codes {
		if err := store.UpsertAccessCode(ctx, c); err != nil {
			return fmt.Errorf("seed %s: %w", c.Code, err)
		}
		logger.Get().Info(ctx, "access code stored",
			logger.String("code", c.Code),
			logger.String("type", string(c.Type)))
	}
	return writeOutput(outWriter(cmd), cmd.String(flagFormat), codes)
}

func codeFromFlags(cmd *cli.Command) (model.AccessCode, error) {
	c := model.AccessCode{
		Code:        model.NormalizeAccessCode(cmd.String(flagCode)),
		Type:        model.ConnectionType(cmd.String(flagCodeType)),
		Description: cmd.String(flagDescription),
		Active:      !cmd.Bool(flagInactive),
	}
	if c.Code == "" {
		return c, fmt.Errorf("%w: --code is required unless --defaults is set", ErrUsage)
	}
	if c.Type != model.ConnectionFamily && c.Type != model.ConnectionFriends {
		return c, fmt.Errorf("%w: --type must be family or friends, got %q", ErrUsage, c.Type)
	}

	switch n := int(cmd.Int(flagMaxUses)); {
	case n < 0:
		return c, fmt.Errorf("%w: --max-uses must not be negative", ErrUsage)
	case n > 0:
		c.MaxUses = &n
	}

	if s := cmd.String(flagExpires); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c, fmt.Errorf("%w: --expires: %w", ErrUsage, err)
		}
		t = t.UTC()
		c.ExpiresAt = &t
	}
	return c, nil
}
