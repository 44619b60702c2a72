package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/stork/internal/adapters/mail"
	"github.com/okian/stork/internal/adapters/repository"
	service "github.com/okian/stork/internal/app"
	"github.com/okian/stork/internal/domain/model"
	"github.com/okian/stork/pkg/logger"
)

const adminEmail = "admin@example.com"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

var tokenPattern = regexp.MustCompile(`token=([0-9a-f]{64})`)

func tokenOf(m mail.Message) string {
	match := tokenPattern.FindStringSubmatch(m.Text)
	if match == nil {
		return ""
	}
	return match[1]
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	svc    *service.Service
	store  *repository.SQLStore
	mailer *captureMailer
	clock  *fixedClock
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	clock := &fixedClock{t: time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)}
	store, err := repository.Open(context.Background(), repository.DriverSQLite,
		filepath.Join(t.TempDir(), "stork.db"), repository.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{store: store, mailer: &captureMailer{}, clock: clock}
	opts = append([]service.Option{
		service.WithAdminEmail(adminEmail),
		service.WithBaseURL("https://stork.example"),
		service.WithClock(f.clock.Now),
		service.WithLogger(logger.Nop()),
	}, opts...)
	f.svc = service.New(store, f.mailer, opts...)
	return f
}

// flush drains the mail queue into the capture mailer.
func (f *fixture) flush() {
	ctx := context.Background()
	_ = f.svc.Start(ctx)
	_ = f.svc.Stop(ctx)
}

func input(name, email string) model.PredictionInput {
	return model.PredictionInput{
		UserName:        name,
		UserEmail:       email,
		ConnectionTypes: []model.ConnectionType{model.ConnectionFamily},
		BirthDate:       "2026-02-05",
		BirthTime:       model.ClockTime{Hours: 14, Minutes: 30},
		Weight:          3.4,
		Height:          50,
		EyeColor:        "brown",
		HairColor:       "black",
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		f := newFixture(t, service.WithWorkerCount(3), service.WithQueueSize(10))
		ctx := context.Background()

		Convey("When it is started", func() {
			So(f.svc.Start(ctx), ShouldBeNil)
			So(f.svc.Start(ctx), ShouldBeNil)

			Convey("Then stats report it running", func() {
				stats := f.svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 3)
				So(stats["queueSize"], ShouldEqual, 10)
				So(stats["totalPredictions"], ShouldEqual, 0)
			})

			Convey("And stopping marks it stopped", func() {
				So(f.svc.Stop(ctx), ShouldBeNil)
				So(f.svc.GetStats()["started"], ShouldEqual, false)
				So(f.svc.Stop(ctx), ShouldBeNil)
			})

			Convey("And a restarted service still delivers mail", func() {
				So(f.svc.Stop(ctx), ShouldBeNil)
				res, err := f.svc.SubmitPrediction(ctx, input("Ana", "ana@example.com"), "en")
				So(err, ShouldBeNil)
				So(res.VerificationQueued, ShouldBeTrue)

				So(f.svc.Start(ctx), ShouldBeNil)
				So(f.svc.Stop(ctx), ShouldBeNil)
				msgs := f.mailer.messages()
				So(msgs, ShouldHaveLength, 1)
				So(msgs[0].To, ShouldEqual, "ana@example.com")
			})
		})
	})
}

func TestService_SubmitPrediction(t *testing.T) {
	Convey("Given a service with open submissions", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("When a new participant submits", func() {
			res, err := f.svc.SubmitPrediction(ctx, input(" Lucas ", "  Lucas@Example.com "), "sv")
			So(err, ShouldBeNil)

			Convey("Then the prediction is stored under the normalized owner", func() {
				So(res.Prediction.Owner.Name, ShouldEqual, "Lucas")
				So(res.Updated, ShouldBeFalse)
				So(res.EmailVerified, ShouldBeFalse)
				So(res.VerificationQueued, ShouldBeTrue)
				So(res.Prediction.Owner.Email, ShouldEqual, "lucas@example.com")
				So(f.svc.GetStats()["queueLength"], ShouldEqual, 1)
			})

			Convey("And a localized verification email goes out", func() {
				f.flush()
				msgs := f.mailer.messages()
				So(msgs, ShouldHaveLength, 1)
				So(msgs[0].To, ShouldEqual, "lucas@example.com")
				So(msgs[0].Kind, ShouldEqual, mail.KindVerification)
				So(msgs[0].Text, ShouldContainSubstring, "https://stork.example/sv/verify-email")
				So(tokenOf(msgs[0]), ShouldNotBeEmpty)
			})

			Convey("And a second submission updates instead of duplicating", func() {
				in := input("Lucas M", "lucas@example.com")
				in.Weight = 3.9
				again, err := f.svc.SubmitPrediction(ctx, in, "en")
				So(err, ShouldBeNil)
				So(again.Updated, ShouldBeTrue)
				So(again.Prediction.ID, ShouldEqual, res.Prediction.ID)
				So(again.Prediction.Weight, ShouldEqual, 3.9)

				all, err := f.svc.ListPredictions(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 1)
			})
		})

		Convey("When the input is invalid", func() {
			in := input("L", "not-an-email")
			_, err := f.svc.SubmitPrediction(ctx, in, "en")

			Convey("Then a validation error is returned", func() {
				So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When submissions are locked", func() {
			locked := true
			_, err := f.svc.UpdateSettings(ctx, adminEmail, model.SettingsPatch{SubmissionsLocked: &locked})
			So(err, ShouldBeNil)
			_, err = f.svc.SubmitPrediction(ctx, input("Maria", "maria@example.com"), "en")

			Convey("Then the submission is refused", func() {
				So(err, ShouldEqual, service.ErrSubmissionsLocked)
			})
		})

		Convey("When the mail queue is full", func() {
			small := newFixture(t, service.WithQueueSize(1))
			_, err := small.svc.SubmitPrediction(ctx, input("Maria", "maria@example.com"), "en")
			So(err, ShouldBeNil)
			res, err := small.svc.SubmitPrediction(ctx, input("Sofia", "sofia@example.com"), "en")

			Convey("Then the prediction is still stored", func() {
				So(err, ShouldBeNil)
				So(res.VerificationQueued, ShouldBeFalse)
				So(res.Prediction.ID, ShouldNotBeEmpty)
			})
		})
	})
}

func TestService_VerifyEmail(t *testing.T) {
	Convey("Given a submitted prediction with a pending verification", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.svc.SubmitPrediction(ctx, input("Carlos", "carlos@example.com"), "es-AR")
		So(err, ShouldBeNil)
		f.flush()
		token := tokenOf(f.mailer.messages()[0])

		Convey("When the token is presented", func() {
			p, err := f.svc.VerifyEmail(ctx, "Carlos@example.com", token)

			Convey("Then the participant is verified", func() {
				So(err, ShouldBeNil)
				So(p.Verified(), ShouldBeTrue)
			})

			Convey("And the token cannot be reused", func() {
				_, err := f.svc.VerifyEmail(ctx, "carlos@example.com", token)
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})

			Convey("And resending reports already verified", func() {
				already, err := f.svc.ResendVerification(ctx, "carlos@example.com", "en")
				So(err, ShouldBeNil)
				So(already, ShouldBeTrue)
			})
		})

		Convey("When the token has expired", func() {
			f.clock.Advance(25 * time.Hour)
			_, err := f.svc.VerifyEmail(ctx, "carlos@example.com", token)

			Convey("Then verification fails", func() {
				So(errors.Is(err, service.ErrTokenExpired), ShouldBeTrue)
			})
		})

		Convey("When required fields are missing", func() {
			_, errEmail := f.svc.VerifyEmail(ctx, " ", token)
			_, errToken := f.svc.VerifyEmail(ctx, "carlos@example.com", "")

			Convey("Then the caller is told which", func() {
				So(errEmail, ShouldEqual, service.ErrMissingEmail)
				So(errToken, ShouldEqual, service.ErrMissingToken)
			})
		})
	})
}

func TestService_ResendVerification(t *testing.T) {
	Convey("Given an email that never submitted", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("When a verification email is requested", func() {
			already, err := f.svc.ResendVerification(ctx, "new@example.com", "en")
			So(err, ShouldBeNil)
			So(already, ShouldBeFalse)
			f.flush()

			Convey("Then the token it carries verifies the email", func() {
				msgs := f.mailer.messages()
				So(msgs, ShouldHaveLength, 1)
				p, err := f.svc.VerifyEmail(ctx, "new@example.com", tokenOf(msgs[0]))
				So(err, ShouldBeNil)
				So(p.Email, ShouldEqual, "new@example.com")
			})
		})

		Convey("When the email is blank", func() {
			_, err := f.svc.ResendVerification(ctx, "", "en")
			So(err, ShouldEqual, service.ErrMissingEmail)
		})
	})
}
