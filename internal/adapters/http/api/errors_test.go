package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/stork/internal/app"
	"github.com/okian/stork/internal/domain/model"
)

func TestErrorWrapping(t *testing.T) {
	Convey("Given op-tagged errors", t, func() {
		cause := errors.New("unexpected EOF")

		Convey("WrapKind matches both the kind and the cause", func() {
			err := WrapKind("api.test", ErrBadRequest, cause)
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.test: bad request: unexpected EOF")
		})

		Convey("Wrap keeps nil as nil", func() {
			So(Wrap("api.test", nil), ShouldBeNil)
		})

		Convey("NewKind carries only the kind", func() {
			err := NewKind("api.test", ErrRateLimited)
			So(errors.Is(err, ErrRateLimited), ShouldBeTrue)
			So(message(http.StatusTooManyRequests, err), ShouldEqual, "too many requests")
		})

		Convey("Server errors hide their cause", func() {
			So(message(http.StatusInternalServerError, Wrap("api.test", cause)), ShouldEqual, "Internal Server Error")
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given errors from the service layer", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("%w: weight must be at least 2.5", model.ErrValidation), http.StatusBadRequest, "validation_failed"},
			{service.ErrMissingEmail, http.StatusBadRequest, "bad_request"},
			{service.ErrEmptyPatch, http.StatusBadRequest, "bad_request"},
			{fmt.Errorf("consume token: %w", service.ErrTokenExpired), http.StatusBadRequest, "token_expired"},
			{service.ErrForbidden, http.StatusForbidden, "forbidden"},
			{service.ErrSubmissionsLocked, http.StatusForbidden, "submissions_locked"},
			{model.ErrAccessCodeExhausted, http.StatusForbidden, "access_code_rejected"},
			{service.ErrNoActualResult, http.StatusNotFound, "not_found"},
			{fmt.Errorf("get: %w", service.ErrNotFound), http.StatusNotFound, "not_found"},
			{NewKind("api.x", ErrRateLimited), http.StatusTooManyRequests, "rate_limited"},
			{service.ErrMailUnavailable, http.StatusServiceUnavailable, "mail_unavailable"},
			{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		}

		for _, c := range cases {
			status, code := classify(Wrap("api.test", c.err))
			So(status, ShouldEqual, c.status)
			So(code, ShouldEqual, c.code)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	Convey("Given a limiter with a burst of one", t, func() {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		l := NewRateLimiter(1, 1)
		l.now = func() time.Time { return now }

		Convey("Then a second immediate request is refused", func() {
			So(l.Allow("10.0.0.1"), ShouldBeTrue)
			So(l.Allow("10.0.0.1"), ShouldBeFalse)
			So(l.Allow("10.0.0.2"), ShouldBeTrue)
		})

		Convey("Then tokens refill over time", func() {
			So(l.Allow("10.0.0.1"), ShouldBeTrue)
			now = now.Add(time.Second)
			So(l.Allow("10.0.0.1"), ShouldBeTrue)
		})

		Convey("Then idle clients are forgotten", func() {
			l.Allow("10.0.0.1")
			now = now.Add(limiterIdleTTL + limiterSweepEvery + time.Second)
			l.Allow("10.0.0.2")
			So(l.clients, ShouldHaveLength, 1)
		})
	})
}

func TestRequestLocale(t *testing.T) {
	Convey("Given Accept-Language headers", t, func() {
		locale := func(header string) string {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				r.Header.Set("Accept-Language", header)
			}
			return requestLocale(r)
		}

		So(locale(""), ShouldEqual, "en")
		So(locale("es-AR,es;q=0.9"), ShouldEqual, "es-AR")
		So(locale("sv"), ShouldEqual, "sv")
		So(locale("en-GB"), ShouldEqual, "en")
	})
}
