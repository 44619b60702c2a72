package demodata_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/stork/internal/adapters/http/api"
	"github.com/okian/stork/internal/adapters/mail"
	"github.com/okian/stork/internal/adapters/repository"
	service "github.com/okian/stork/internal/app"
	"github.com/okian/stork/internal/demodata"
	"github.com/okian/stork/internal/domain/model"
	"github.com/okian/stork/pkg/logger"
)

const adminEmail = "admin@example.com"

func init() {
	_ = logger.Init(logger.WithOutput(io.Discard))
}

func TestGenerate(t *testing.T) {
	Convey("Given a seed", t, func() {
		a := demodata.Generate(25, 42)
		b := demodata.Generate(25, 42)

		Convey("Then generation is deterministic", func() {
			So(a, ShouldResemble, b)
			So(demodata.Generate(25, 43), ShouldNotResemble, a)
		})

		Convey("Then every entry passes validation", func() {
			So(a.Predictions, ShouldHaveLength, 25)
			So(a.Validate(), ShouldBeNil)
		})

		Convey("Then names repeat with a round suffix and emails stay unique", func() {
			So(a.Predictions[0].UserName, ShouldEqual, "Lucas")
			So(a.Predictions[10].UserName, ShouldEqual, "Lucas 2")
			So(a.Predictions[10].UserEmail, ShouldEqual, "lucas.2@example.com")
		})

		Convey("Then birth dates stay near the due date", func() {
			for _, p := range a.Predictions {
				d, err := model.ParseDate(p.BirthDate)
				So(err, ShouldBeNil)
				days := int(d.Sub(demodata.DueDate).Hours() / 24)
				So(days, ShouldBeBetweenOrEqual, -4, 4)
			}
		})
	})

	Convey("Given a negative count", t, func() {
		So(demodata.Generate(-1, 1).Predictions, ShouldBeEmpty)
	})
}

func TestDatasetScore(t *testing.T) {
	Convey("Given a generated dataset", t, func() {
		ds := demodata.Generate(12, 7)
		now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

		Convey("When it is scored", func() {
			ranked, err := ds.Score(now)

			Convey("Then ranks run 1..N best first", func() {
				So(err, ShouldBeNil)
				So(ranked, ShouldHaveLength, 12)
				for i, sp := range ranked {
					So(sp.Rank, ShouldEqual, i+1)
					if i > 0 {
						So(sp.Score, ShouldBeGreaterThanOrEqualTo, ranked[i-1].Score)
					}
				}
			})

			Convey("Then ids are stable across runs", func() {
				again, _ := ds.Score(now)
				So(again[0].ID, ShouldEqual, ranked[0].ID)
			})
		})

		Convey("When an exact guess is added", func() {
			exact := model.PredictionInput{
				UserName:        "Oracle",
				UserEmail:       "oracle@example.com",
				ConnectionTypes: []model.ConnectionType{model.ConnectionFriends},
				BirthDate:       ds.Actual.BirthDate,
				BirthTime:       ds.Actual.BirthTime,
				Weight:          ds.Actual.Weight,
				Height:          ds.Actual.Height,
				EyeColor:        ds.Actual.EyeColor,
				HairColor:       ds.Actual.HairColor,
			}
			ds.Predictions = append(ds.Predictions, exact)
			ranked, err := ds.Score(now)

			Convey("Then it wins with a zero score", func() {
				So(err, ShouldBeNil)
				So(ranked[0].Score, ShouldEqual, 0)
			})
		})

		Convey("When two predictions share an email", func() {
			ds.Predictions[1].UserEmail = " " + ds.Predictions[0].UserEmail
			_, err := ds.Score(now)

			Convey("Then the dataset is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := repository.Open(context.Background(), repository.DriverSQLite,
		filepath.Join(t.TempDir(), "stork.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc := service.New(store, mail.NewLogMailer(logger.Nop()),
		service.WithAdminEmail(adminEmail),
		service.WithLogger(logger.Nop()))
	apiServer := api.NewServer(svc, svc, api.WithLogger(logger.Nop()), api.WithRateLimit(1000, 1000))

	mux := http.NewServeMux()
	apiServer.Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestReplay(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv := newServer(t)
		ds := demodata.Generate(8, 3)
		ctx := context.Background()

		Convey("When the dataset is replayed with the admin email", func() {
			stats, err := demodata.Replay(ctx, demodata.ReplayConfig{
				BaseURL:    srv.URL,
				AdminEmail: adminEmail,
				Workers:    3,
			}, ds)

			Convey("Then every prediction is created and ranked", func() {
				So(err, ShouldBeNil)
				So(stats.Submitted, ShouldEqual, 8)
				So(stats.Created, ShouldEqual, 8)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Winners, ShouldEqual, 8)

				local, _ := ds.Score(time.Now())
				So(stats.BestScore, ShouldEqual, local[0].Score)
			})

			Convey("And replaying again updates instead of creating", func() {
				again, err := demodata.Replay(ctx, demodata.ReplayConfig{BaseURL: srv.URL}, ds)
				So(err, ShouldBeNil)
				So(again.Updated, ShouldEqual, 8)
				So(again.Created, ShouldEqual, 0)
			})
		})

		Convey("When a prediction is invalid", func() {
			ds.Predictions[0].Weight = 9
			stats, err := demodata.Replay(ctx, demodata.ReplayConfig{BaseURL: srv.URL}, ds)

			Convey("Then it is counted as rejected", func() {
				So(err, ShouldBeNil)
				So(stats.Rejected, ShouldEqual, 1)
				So(stats.Created, ShouldEqual, 7)
			})
		})
	})

	Convey("Given an unreachable server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		_, err := demodata.Replay(context.Background(), demodata.ReplayConfig{BaseURL: srv.URL, Timeout: time.Second}, demodata.Generate(1, 1))

		Convey("Then the health check fails", func() {
			So(errors.Is(err, demodata.ErrUnhealthy), ShouldBeTrue)
		})
	})
}
