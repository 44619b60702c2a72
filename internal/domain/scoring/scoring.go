// Package scoring ranks predictions by their distance from the actual result.
//
// Every attribute contributes a non-negative integer penalty; the penalties
// add up to a score where lower is better. Scoring is pure: it performs no
// I/O, never mutates its inputs and is safe for concurrent use.
package scoring

import (
	"math"
	"sort"
	"time"

	"golang.org/x/text/cases"

	"github.com/okian/stork/internal/domain/model"
)

// Scoring constants.
const (
	// ColorMissPenalty is charged for a wrong eye or hair color. It is large
	// on purpose so that a categorical miss outweighs small numeric misses.
	ColorMissPenalty = 10

	minutesPerPoint = 60
	gramsPerKilo    = 1000
	gramsPerPoint   = 100
	hoursPerDay     = 24
)

// Breakdown holds the per-attribute penalties.
type Breakdown struct {
	Date      int `json:"date"`
	Time      int `json:"time"`
	Weight    int `json:"weight"`
	Height    int `json:"height"`
	EyeColor  int `json:"eye_color"`
	HairColor int `json:"hair_color"`
}

// Total sums all six penalties.
func (b Breakdown) Total() int {
	return b.Date + b.Time + b.Weight + b.Height + b.EyeColor + b.HairColor
}

// ScoredPrediction is a prediction with its penalties and final rank.
type ScoredPrediction struct {
	model.Prediction

	Breakdown Breakdown `json:"breakdown"`
	Score     int       `json:"score"`
	Rank      int       `json:"rank"`
}

// CalculateWinners scores every prediction against actual and returns them
// ordered best first. Equal scores keep their input order, so the earlier
// prediction gets the lower rank. Ranks run 1..N without gaps.
func CalculateWinners(predictions []model.Prediction, actual model.ActualResult) []ScoredPrediction {
	scored := make([]ScoredPrediction, len(predictions))
	for i := range predictions {
		b := Score(predictions[i].Guess, actual.Guess)
		scored[i] = ScoredPrediction{
			Prediction: predictions[i],
			Breakdown:  b,
			Score:      b.Total(),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})

	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}

// Score computes the breakdown of a single guess against the actual values.
func Score(guess, actual model.Guess) Breakdown {
	return Breakdown{
		Date:      DatePenalty(guess.BirthDate, actual.BirthDate),
		Time:      TimePenalty(guess.BirthTime, actual.BirthTime),
		Weight:    WeightPenalty(guess.Weight, actual.Weight),
		Height:    HeightPenalty(guess.Height, actual.Height),
		EyeColor:  ColorPenalty(guess.EyeColor, actual.EyeColor),
		HairColor: ColorPenalty(guess.HairColor, actual.HairColor),
	}
}

// DatePenalty is one point per calendar day between the two dates. The time
// of day is dropped first; each value keeps the calendar date of its own
// location.
func DatePenalty(predicted, actual time.Time) int {
	diff := model.DateOf(predicted).Sub(model.DateOf(actual))
	days := math.Abs(diff.Hours()) / hoursPerDay
	return int(math.Ceil(days))
}

// TimePenalty is one point per hour between the two times of day, rounded
// to the nearest hour (30 minutes rounds up).
func TimePenalty(predicted, actual model.ClockTime) int {
	diff := predicted.MinutesSinceMidnight() - actual.MinutesSinceMidnight()
	if diff < 0 {
		diff = -diff
	}
	return int(math.Round(float64(diff) / minutesPerPoint))
}

// WeightPenalty is one point per 100 g, rounded to the nearest point.
func WeightPenalty(predictedKg, actualKg float64) int {
	grams := math.Abs(predictedKg-actualKg) * gramsPerKilo
	return int(math.Round(grams / gramsPerPoint))
}

// HeightPenalty is one point per centimeter. The difference is rounded half
// away from zero rather than kept fractional, so 0.5 cm costs a point and the
// breakdown stays integral and sums exactly to the score.
func HeightPenalty(predictedCm, actualCm float64) int {
	return int(math.Round(math.Abs(predictedCm - actualCm)))
}

// ColorPenalty is 0 when the colors match ignoring case and
// ColorMissPenalty otherwise.
func ColorPenalty(predicted, actual string) int {
	fold := cases.Fold()
	if fold.String(predicted) == fold.String(actual) {
		return 0
	}
	return ColorMissPenalty
}
