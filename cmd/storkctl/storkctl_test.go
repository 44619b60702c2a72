package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"

	"github.com/okian/stork/internal/adapters/repository"
	"github.com/okian/stork/internal/demodata"
	"github.com/okian/stork/internal/domain/model"
)

// run executes storkctl with args and returns what it printed.
func run(args ...string) (string, error) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(context.Background(), append([]string{"storkctl"}, args...))
	return out.String(), err
}

const poolYAML = `
actual:
  birth_date: "2026-02-05"
  birth_time: "14:30"
  weight: 3.4
  height: 50
  eye_color: brown
  hair_color: black
predictions:
  - user_name: Bruno
    user_email: bruno@example.com
    connection_types: [friends]
    birth_date: "2026-02-07"
    birth_time: "15:30"
    weight: 3.5
    height: 52
    eye_color: blue
    hair_color: black
  - user_name: Ana
    user_email: ana@example.com
    connection_types: [family]
    birth_date: "2026-02-05"
    birth_time: "14:30"
    weight: 3.4
    height: 50
    eye_color: brown
    hair_color: black
`

func TestDemoCommand(t *testing.T) {
	convey.Convey("Given the demo command", t, func() {
		convey.Convey("When JSON output is requested", func() {
			out, err := run("demo", "--count", "3", "--seed", "5")

			convey.Convey("Then it prints the seeded dataset", func() {
				convey.So(err, convey.ShouldBeNil)
				var ds demodata.Dataset
				convey.So(json.Unmarshal([]byte(out), &ds), convey.ShouldBeNil)
				convey.So(ds, convey.ShouldResemble, demodata.Generate(3, 5))
			})
		})

		convey.Convey("When YAML output is requested", func() {
			out, err := run("--format", "yaml", "demo", "--count", "2")

			convey.Convey("Then it prints YAML with API field names", func() {
				convey.So(err, convey.ShouldBeNil)
				var doc map[string]any
				convey.So(yaml.Unmarshal([]byte(out), &doc), convey.ShouldBeNil)
				convey.So(doc, convey.ShouldContainKey, "predictions")
				convey.So(out, convey.ShouldContainSubstring, "user_email:")
			})
		})

		convey.Convey("When the count is not positive", func() {
			_, err := run("demo", "--count", "0")
			convey.So(errors.Is(err, ErrUsage), convey.ShouldBeTrue)
		})

		convey.Convey("When the format is unknown", func() {
			_, err := run("--format", "xml", "demo")
			convey.So(errors.Is(err, ErrUsage), convey.ShouldBeTrue)
		})
	})
}

func TestWinnersCommand(t *testing.T) {
	convey.Convey("Given a pool file", t, func() {
		path := filepath.Join(t.TempDir(), "pool.yaml")
		convey.So(os.WriteFile(path, []byte(poolYAML), 0o600), convey.ShouldBeNil)

		convey.Convey("When it is ranked", func() {
			out, err := run("winners", "--input", path)

			convey.Convey("Then the exact guess wins and penalties are itemized", func() {
				convey.So(err, convey.ShouldBeNil)
				var res ranking
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.TotalPredictions, convey.ShouldEqual, 2)
				convey.So(res.Winners[0].Owner.Name, convey.ShouldEqual, "Ana")
				convey.So(res.Winners[0].Score, convey.ShouldEqual, 0)
				convey.So(res.Winners[0].Medal, convey.ShouldEqual, "gold")
				convey.So(res.Winners[1].Score, convey.ShouldEqual, 16)
				convey.So(res.Winners[1].Breakdown.Date, convey.ShouldEqual, 2)
				convey.So(res.Winners[1].Breakdown.EyeColor, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When neither or both sources are given", func() {
			_, err := run("winners")
			convey.So(errors.Is(err, ErrUsage), convey.ShouldBeTrue)

			_, err = run("winners", "--input", path, "--db", "x.db")
			convey.So(errors.Is(err, ErrUsage), convey.ShouldBeTrue)
		})

		convey.Convey("When the file does not exist", func() {
			_, err := run("winners", "--input", filepath.Join(t.TempDir(), "missing.json"))
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given a database with predictions and a result", t, func() {
		ctx := context.Background()
		dbPath := filepath.Join(t.TempDir(), "stork.db")
		store, err := repository.Open(ctx, repository.DriverSQLite, dbPath)
		convey.So(err, convey.ShouldBeNil)

		ds := demodata.Generate(5, 9)
		for _, in := range ds.Predictions {
			g, err := in.Guess()
			convey.So(err, convey.ShouldBeNil)
			_, _, err = store.UpsertPrediction(ctx, model.Owner{Name: in.UserName, Email: in.UserEmail}, in.ConnectionTypes, g)
			convey.So(err, convey.ShouldBeNil)
		}
		actual, err := ds.Actual.Guess()
		convey.So(err, convey.ShouldBeNil)
		_, err = store.SaveActualResult(ctx, model.ActualResult{Guess: actual, EnteredAt: time.Now()})
		convey.So(err, convey.ShouldBeNil)
		convey.So(store.Close(), convey.ShouldBeNil)

		convey.Convey("When it is ranked", func() {
			out, err := run("winners", "--db", dbPath)

			convey.Convey("Then the ranking matches the offline scorer", func() {
				convey.So(err, convey.ShouldBeNil)
				var res ranking
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.Winners, convey.ShouldHaveLength, 5)

				local, _ := ds.Score(time.Now())
				for i := range local {
					convey.So(res.Winners[i].Score, convey.ShouldEqual, local[i].Score)
				}
			})
		})
	})

	convey.Convey("Given an empty database", t, func() {
		dbPath := filepath.Join(t.TempDir(), "empty.db")
		_, err := run("winners", "--db", dbPath)

		convey.Convey("Then there is no result to rank against", func() {
			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
		})
	})
}

func TestCodesSeedCommand(t *testing.T) {
	convey.Convey("Given a database", t, func() {
		ctx := context.Background()
		dbPath := filepath.Join(t.TempDir(), "stork.db")

		convey.Convey("When a limited code is seeded", func() {
			_, err := run("codes", "seed", "--db", dbPath,
				"--code", " vip2026 ", "--type", "friends", "--max-uses", "1",
				"--expires", "2030-01-01T00:00:00Z")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then it redeems once", func() {
				store, err := repository.Open(ctx, repository.DriverSQLite, dbPath)
				convey.So(err, convey.ShouldBeNil)
				defer func() { _ = store.Close() }()

				c, err := store.RedeemAccessCode(ctx, "VIP2026")
				convey.So(err, convey.ShouldBeNil)
				convey.So(c.Type, convey.ShouldEqual, model.ConnectionFriends)

				_, err = store.RedeemAccessCode(ctx, "VIP2026")
				convey.So(errors.Is(err, model.ErrAccessCodeExhausted), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the default codes are seeded", func() {
			out, err := run("codes", "seed", "--db", dbPath, "--defaults")

			convey.Convey("Then both codes are printed and stored", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "FAMILY2026")
				convey.So(out, convey.ShouldContainSubstring, "FRIENDS2026")
			})
		})

		convey.Convey("When the flags are invalid", func() {
			cases := [][]string{
				{"codes", "seed", "--db", dbPath},
				{"codes", "seed", "--db", dbPath, "--code", "X", "--type", "vip"},
				{"codes", "seed", "--db", dbPath, "--code", "X", "--max-uses=-1"},
				{"codes", "seed", "--db", dbPath, "--code", "X", "--expires", "tomorrow"},
				{"codes", "seed", "--code", "X"},
			}
			for _, args := range cases {
				_, err := run(args...)
				convey.So(errors.Is(err, ErrUsage), convey.ShouldBeTrue)
			}
		})
	})
}
