// Package demodata generates sample pools and replays them against a running
// server.
package demodata

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stork/internal/domain/model"
	"github.com/okian/stork/internal/domain/scoring"
)

// Generation constants.
const (
	DefaultCount = 10
	dateSpread   = 4 // days either side of the due date
	minuteStep   = 5
	minutesInDay = 24 * 60
	weightMeanKg = 3.5
	weightSDKg   = 0.35
	heightMeanCm = 50.0
	heightSDCm   = 2.5
)

// DueDate anchors generated birth dates.
var DueDate = time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // read-only

var names = []string{ //nolint:gochecknoglobals // read-only
	"Lucas", "Maria", "Carlos", "Sofia", "Diego",
	"Ana", "Miguel", "Isabella", "Roberto", "Patricia",
}

// Dataset is a complete pool: every prediction plus the real outcome.
type Dataset struct {
	Actual      model.ActualResultInput `json:"actual"`
	Predictions []model.PredictionInput `json:"predictions"`
}

// Generate builds count predictions and an actual result. The same seed
// always yields the same dataset.
func Generate(count int, seed uint64) Dataset {
	if count < 0 {
		count = 0
	}
	r := rand.New(rand.NewPCG(seed, seed^0x5d0c)) //nolint:gosec // sample data, not secrets

	ds := Dataset{Predictions: make([]model.PredictionInput, count)}
	for i := range count {
		ds.Predictions[i] = generatePrediction(r, i)
	}

	g := generateGuess(r)
	ds.Actual = model.ActualResultInput{
		BirthDate: g.BirthDate,
		BirthTime: g.BirthTime,
		Weight:    g.Weight,
		Height:    g.Height,
		EyeColor:  g.EyeColor,
		HairColor: g.HairColor,
	}
	return ds
}

func generatePrediction(r *rand.Rand, i int) model.PredictionInput {
	name := names[i%len(names)]
	if round := i / len(names); round > 0 {
		name += " " + strconv.Itoa(round+1)
	}
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"

	conn := []model.ConnectionType{model.ConnectionFamily}
	if r.IntN(2) == 1 {
		conn = []model.ConnectionType{model.ConnectionFriends}
	}

	in := generateGuess(r)
	in.UserName = name
	in.UserEmail = email
	in.ConnectionTypes = conn
	return in
}

// generateGuess fills the scored fields of an input within the form limits.
func generateGuess(r *rand.Rand) model.PredictionInput {
	day := DueDate.AddDate(0, 0, r.IntN(2*dateSpread+1)-dateSpread)
	minutes := r.IntN(minutesInDay/minuteStep) * minuteStep

	return model.PredictionInput{
		BirthDate: model.FormatDate(day),
		BirthTime: model.ClockTime{Hours: minutes / 60, Minutes: minutes % 60},
		Weight:    clamp(roundTo(weightMeanKg+r.NormFloat64()*weightSDKg, 10), 2.5, 4.5),
		Height:    clamp(math.Round(heightMeanCm+r.NormFloat64()*heightSDCm), 40, 60),
		EyeColor:  model.EyeColors[r.IntN(len(model.EyeColors))].ID,
		HairColor: model.HairColors[r.IntN(len(model.HairColors))].ID,
	}
}

// Validate checks every entry of the dataset.
func (d Dataset) Validate() error {
	if err := d.Actual.Validate(); err != nil {
		return fmt.Errorf("actual: %w", err)
	}
	seen := make(map[string]int, len(d.Predictions))
	for i, in := range d.Predictions {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("prediction %d (%s): %w", i, in.UserEmail, err)
		}
		email := model.NormalizeEmail(in.UserEmail)
		if j, ok := seen[email]; ok {
			return fmt.Errorf("%w: prediction %d repeats the email of prediction %d", model.ErrValidation, i, j)
		}
		seen[email] = i
	}
	return nil
}

// Score ranks the dataset offline. Prediction ids are derived from the
// email so repeated runs agree.
func (d Dataset) Score(now time.Time) ([]scoring.ScoredPrediction, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	actual, err := d.Actual.Guess()
	if err != nil {
		return nil, err
	}

	preds := make([]model.Prediction, len(d.Predictions))
	for i, in := range d.Predictions {
		g, err := in.Guess()
		if err != nil {
			return nil, err
		}
		email := model.NormalizeEmail(in.UserEmail)
		preds[i] = model.Prediction{
			ID:              uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String(),
			Owner:           model.Owner{Name: strings.TrimSpace(in.UserName), Email: email},
			Guess:           g,
			ConnectionTypes: in.ConnectionTypes,
			SubmittedAt:     now,
			UpdatedAt:       now,
		}
	}
	return scoring.CalculateWinners(preds, model.ActualResult{Guess: actual, EnteredAt: now}), nil
}

func roundTo(v float64, per float64) float64 { return math.Round(v*per) / per }

func clamp(v, lo, hi float64) float64 { return math.Min(hi, math.Max(lo, v)) }
