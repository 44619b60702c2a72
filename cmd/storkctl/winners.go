package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/okian/stork/internal/adapters/repository"
	"github.com/okian/stork/internal/demodata"
	"github.com/okian/stork/internal/domain/model"
	"github.com/okian/stork/internal/domain/scoring"
)

const flagInput = "input"

// ranking is the winners output.
type ranking struct {
	Winners          []rankedEntry      `json:"winners"`
	Actual           model.ActualResult `json:"actual_results"`
	TotalPredictions int                `json:"total_predictions"`
}

type rankedEntry struct {
	scoring.ScoredPrediction
	Medal string `json:"medal,omitempty"`
	Label string `json:"label"`
}

func winnersCmd() *cli.Command {
	return &cli.Command{
		Name:    "winners",
		Aliases: []string{"w"},
		Usage:   "Rank predictions against the actual result",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  flagInput,
				Usage: "YAML or JSON file with an actual result and predictions",
			},
		}, storeFlags()...),
		Action: cmdWinners,
	}
}

func cmdWinners(ctx context.Context, cmd *cli.Command) error {
	input, dsn := cmd.String(flagInput), cmd.String(flagDB)
	if (input == "") == (dsn == "") {
		return fmt.Errorf("%w: set exactly one of --input or --db", ErrUsage)
	}

	var (
		res ranking
		err error
	)
	if input != "" {
		res, err = rankFile(input, time.Now().UTC())
	} else {
		res, err = rankStore(ctx, cmd)
	}
	if err != nil {
		return err
	}
	return writeOutput(outWriter(cmd), cmd.String(flagFormat), res)
}

func rankFile(path string, now time.Time) (ranking, error) {
	var ds demodata.Dataset
	if err := readInput(path, &ds); err != nil {
		return ranking{}, err
	}
	scored, err := ds.Score(now)
	if err != nil {
		return ranking{}, err
	}
	actual, err := ds.Actual.Guess()
	if err != nil {
		return ranking{}, err
	}
	return newRanking(scored, model.ActualResult{Guess: actual, EnteredAt: now}), nil
}

func rankStore(ctx context.Context, cmd *cli.Command) (ranking, error) {
	store, err := openStore(ctx, cmd)
	if err != nil {
		return ranking{}, err
	}
	defer func() { _ = store.Close() }()

	actual, err := store.LatestActualResult(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return ranking{}, fmt.Errorf("no actual result entered yet: %w", err)
	}
	if err != nil {
		return ranking{}, err
	}
	preds, err := store.ListPredictions(ctx)
	if err != nil {
		return ranking{}, err
	}
	return newRanking(scoring.CalculateWinners(preds, actual), actual), nil
}

func newRanking(scored []scoring.ScoredPrediction, actual model.ActualResult) ranking {
	entries := make([]rankedEntry, len(scored))
	for i, sp := range scored {
		entries[i] = rankedEntry{
			ScoredPrediction: sp,
			Medal:            scoring.Medal(sp.Rank),
			Label:            scoring.Label(sp.Score).Name,
		}
	}
	return ranking{Winners: entries, Actual: actual, TotalPredictions: len(scored)}
}
