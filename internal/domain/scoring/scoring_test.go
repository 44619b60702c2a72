package scoring_test

import (
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/stork/internal/domain/model"
	scoring "github.com/okian/stork/internal/domain/scoring"
)

func date(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func guess(d, clock string, weight, height float64, eye, hair string) model.Guess {
	return model.Guess{
		BirthDate: date(d),
		BirthTime: model.MustClockTime(clock),
		Weight:    weight,
		Height:    height,
		EyeColor:  eye,
		HairColor: hair,
	}
}

func actualResult() model.ActualResult {
	return model.ActualResult{Guess: guess("2026-02-05", "12:00", 3.5, 50, "brown", "black")}
}

func prediction(id string, g model.Guess) model.Prediction {
	return model.Prediction{ID: id, Owner: model.Owner{Name: id, Email: id + "@example.com"}, Guess: g}
}

func TestCalculateWinners(t *testing.T) {
	Convey("Given the actual result of a birth", t, func() {
		actual := actualResult()

		Convey("When one prediction is exact and one is off on every numeric attribute", func() {
			a := prediction("A", actual.Guess)
			b := prediction("B", guess("2026-02-07", "13:05", 3.6, 52, "blue", "black"))

			got := scoring.CalculateWinners([]model.Prediction{b, a}, actual)

			Convey("Then the exact prediction wins with a zero score", func() {
				So(got, ShouldHaveLength, 2)
				So(got[0].ID, ShouldEqual, "A")
				So(got[0].Rank, ShouldEqual, 1)
				So(got[0].Score, ShouldEqual, 0)
				So(got[0].Breakdown, ShouldResemble, scoring.Breakdown{})
			})

			Convey("And the other prediction carries each penalty", func() {
				So(got[1].ID, ShouldEqual, "B")
				So(got[1].Rank, ShouldEqual, 2)
				So(got[1].Breakdown, ShouldResemble, scoring.Breakdown{
					Date: 2, Time: 1, Weight: 1, Height: 2, EyeColor: 10, HairColor: 0,
				})
				So(got[1].Score, ShouldEqual, 16)
			})

			Convey("And the owner is carried through untouched", func() {
				So(got[1].Owner, ShouldResemble, b.Owner)
			})
		})

		Convey("When there are no predictions", func() {
			got := scoring.CalculateWinners(nil, actual)

			Convey("Then an empty, non-nil slice is returned", func() {
				So(got, ShouldNotBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When several predictions tie", func() {
			preds := []model.Prediction{
				prediction("first", guess("2026-02-06", "12:00", 3.5, 50, "brown", "black")),
				prediction("worse", guess("2026-02-09", "12:00", 3.5, 50, "brown", "black")),
				prediction("second", guess("2026-02-04", "12:00", 3.5, 50, "brown", "black")),
				prediction("third", guess("2026-02-05", "13:00", 3.5, 50, "brown", "black")),
			}

			got := scoring.CalculateWinners(preds, actual)

			Convey("Then ties keep their input order", func() {
				ids := make([]string, len(got))
				for i := range got {
					ids[i] = got[i].ID
				}
				So(ids, ShouldResemble, []string{"first", "second", "third", "worse"})
			})

			Convey("And ranks are contiguous from one", func() {
				for i := range got {
					So(got[i].Rank, ShouldEqual, i+1)
				}
			})
		})

		Convey("When scoring many varied predictions", func() {
			preds := make([]model.Prediction, 0, 40)
			eyes := []string{"brown", "Blue", "hazel", "BROWN"}
			hairs := []string{"black", "light-brown", "Black"}
			for i := 0; i < 40; i++ {
				preds = append(preds, prediction(fmt.Sprintf("p%02d", i), model.Guess{
					BirthDate: actual.BirthDate.AddDate(0, 0, i%9-4),
					BirthTime: model.ClockTime{Hours: (i * 7) % 24, Minutes: (i * 13) % 60},
					Weight:    2.5 + float64(i%20)*0.1,
					Height:    40 + float64(i%21),
					EyeColor:  eyes[i%len(eyes)],
					HairColor: hairs[i%len(hairs)],
				}))
			}
			before := make([]model.Prediction, len(preds))
			copy(before, preds)

			got := scoring.CalculateWinners(preds, actual)

			Convey("Then every breakdown is non-negative and sums to the score", func() {
				So(got, ShouldHaveLength, len(preds))
				for _, sp := range got {
					b := sp.Breakdown
					for _, p := range []int{b.Date, b.Time, b.Weight, b.Height, b.EyeColor, b.HairColor} {
						So(p, ShouldBeGreaterThanOrEqualTo, 0)
					}
					So(b.Total(), ShouldEqual, sp.Score)
				}
			})

			Convey("And the output is sorted ascending", func() {
				for i := 1; i < len(got); i++ {
					So(got[i-1].Score, ShouldBeLessThanOrEqualTo, got[i].Score)
				}
			})

			Convey("And the input is not mutated", func() {
				So(preds, ShouldResemble, before)
			})
		})
	})
}

func TestDatePenalty(t *testing.T) {
	Convey("Given an actual birth date", t, func() {
		actual := date("2026-02-05")

		Convey("Then the same date costs nothing", func() {
			So(scoring.DatePenalty(actual, actual), ShouldEqual, 0)
		})

		Convey("Then the penalty is symmetric", func() {
			So(scoring.DatePenalty(date("2026-02-02"), actual), ShouldEqual, 3)
			So(scoring.DatePenalty(date("2026-02-08"), actual), ShouldEqual, 3)
		})

		Convey("Then the penalty grows with distance", func() {
			prev := 0
			for d := 0; d < 60; d++ {
				p := scoring.DatePenalty(actual.AddDate(0, 0, d), actual)
				So(p, ShouldBeGreaterThanOrEqualTo, prev)
				prev = p
			}
			So(prev, ShouldEqual, 59)
		})

		Convey("Then the time of day is ignored", func() {
			late := time.Date(2026, 2, 6, 23, 59, 0, 0, time.UTC)
			So(scoring.DatePenalty(late, actual), ShouldEqual, 1)
		})

		Convey("Then a month boundary counts calendar days", func() {
			So(scoring.DatePenalty(date("2026-03-01"), date("2026-02-27")), ShouldEqual, 2)
		})
	})
}

func TestTimePenalty(t *testing.T) {
	Convey("Given an actual birth time of noon", t, func() {
		noon := model.MustClockTime("12:00")

		Convey("Then differences are rounded to the nearest hour", func() {
			So(scoring.TimePenalty(model.MustClockTime("12:29"), noon), ShouldEqual, 0)
			So(scoring.TimePenalty(model.MustClockTime("12:30"), noon), ShouldEqual, 1)
			So(scoring.TimePenalty(model.MustClockTime("11:30"), noon), ShouldEqual, 1)
			So(scoring.TimePenalty(model.MustClockTime("13:05"), noon), ShouldEqual, 1)
			So(scoring.TimePenalty(model.MustClockTime("14:45"), noon), ShouldEqual, 3)
		})

		Convey("Then times do not wrap around midnight", func() {
			So(scoring.TimePenalty(model.MustClockTime("23:30"), model.MustClockTime("00:30")), ShouldEqual, 23)
		})
	})
}

func TestWeightAndHeightPenalty(t *testing.T) {
	Convey("Given weights in kilograms", t, func() {
		Convey("Then every 100 g costs one point", func() {
			So(scoring.WeightPenalty(3.5, 3.5), ShouldEqual, 0)
			So(scoring.WeightPenalty(3.6, 3.5), ShouldEqual, 1)
			So(scoring.WeightPenalty(3.2, 3.5), ShouldEqual, 3)
			So(scoring.WeightPenalty(4.5, 2.5), ShouldEqual, 20)
		})

		Convey("Then sub-100 g differences round to the nearest point", func() {
			So(scoring.WeightPenalty(3.54, 3.5), ShouldEqual, 0)
			So(scoring.WeightPenalty(3.57, 3.5), ShouldEqual, 1)
		})
	})

	Convey("Given heights in centimeters", t, func() {
		Convey("Then every centimeter costs one point", func() {
			So(scoring.HeightPenalty(50, 50), ShouldEqual, 0)
			So(scoring.HeightPenalty(52, 50), ShouldEqual, 2)
			So(scoring.HeightPenalty(45, 50), ShouldEqual, 5)
		})

		Convey("Then half centimeters round up", func() {
			So(scoring.HeightPenalty(50.5, 50), ShouldEqual, 1)
			So(scoring.HeightPenalty(50.25, 50), ShouldEqual, 0)
		})
	})
}

func TestColorPenalty(t *testing.T) {
	Convey("Given color identifiers", t, func() {
		Convey("Then a match costs nothing regardless of case", func() {
			So(scoring.ColorPenalty("brown", "brown"), ShouldEqual, 0)
			So(scoring.ColorPenalty("Brown", "BROWN"), ShouldEqual, 0)
		})

		Convey("Then a miss costs the flat penalty", func() {
			So(scoring.ColorPenalty("blue", "brown"), ShouldEqual, scoring.ColorMissPenalty)
			So(scoring.ColorPenalty("dark-brown", "brown"), ShouldEqual, 10)
		})
	})
}

func TestLabels(t *testing.T) {
	Convey("Given ranks", t, func() {
		Convey("Then the podium gets medals", func() {
			So(scoring.Medal(1), ShouldEqual, scoring.MedalGold)
			So(scoring.Medal(2), ShouldEqual, scoring.MedalSilver)
			So(scoring.Medal(3), ShouldEqual, scoring.MedalBronze)
			So(scoring.Medal(4), ShouldEqual, "")
		})
	})

	Convey("Given scores", t, func() {
		Convey("Then labels follow the bands", func() {
			cases := map[int]string{
				0: "perfect", 1: "excellent", 5: "excellent", 6: "very_good", 10: "very_good",
				11: "good", 20: "good", 21: "not_bad", 30: "not_bad", 31: "nice_try", 200: "nice_try",
			}
			for score, name := range cases {
				So(scoring.Label(score).Name, ShouldEqual, name)
			}
		})

		Convey("Then tones follow the thresholds", func() {
			So(scoring.Tone(0), ShouldEqual, "perfect")
			So(scoring.Tone(5), ShouldEqual, "excellent")
			So(scoring.Tone(10), ShouldEqual, "good")
			So(scoring.Tone(20), ShouldEqual, "okay")
			So(scoring.Tone(21), ShouldEqual, "far")
		})
	})
}
