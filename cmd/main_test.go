package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/stork/internal/adapters/mail"
	"github.com/okian/stork/internal/adapters/repository"
	"github.com/okian/stork/internal/config"
	"github.com/okian/stork/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.New()
	cfg.Addr = "127.0.0.1:0"
	cfg.DBDSN = filepath.Join(t.TempDir(), "stork.db")
	cfg.AdminEmail = "admin@example.com"
	return cfg
}

func TestNewMailer(t *testing.T) {
	convey.Convey("Given mail settings", t, func() {
		cfg := testConfig(t)

		convey.Convey("When no API key is set", func() {
			m, err := newMailer(cfg, logger.Nop())

			convey.Convey("Then mail is logged", func() {
				convey.So(err, convey.ShouldBeNil)
				_, ok := m.(*mail.LogMailer)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an API key is set", func() {
			cfg.MailAPIKey = "re_test"
			m, err := newMailer(cfg, logger.Nop())

			convey.Convey("Then mail goes through the HTTP client", func() {
				convey.So(err, convey.ShouldBeNil)
				_, ok := m.(*mail.HTTPClient)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the sender is missing", func() {
			cfg.MailAPIKey = "re_test"
			cfg.MailFrom = ""
			_, err := newMailer(cfg, logger.Nop())

			convey.Convey("Then the client is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestHTTPServerRoutes(t *testing.T) {
	convey.Convey("Given a wired HTTP server", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN)
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = store.Close() }()

		mailer, err := newMailer(cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		svc := newService(cfg, store, mailer, logger.Nop())
		srv := newHTTPServer(ctx, cfg, svc, logger.Nop())

		get := func(path string) int {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w.Code
		}

		convey.Convey("Then API, metrics and docs routes answer", func() {
			convey.So(srv.Addr, convey.ShouldEqual, cfg.Addr)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			convey.So(get("/predictions"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/admin/settings"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/healthz"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stats"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/nope"), convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a full configuration", t, func() {
		cfg := testConfig(t)

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			err := run(ctx, cfg, logger.Nop())

			convey.Convey("Then run shuts down cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the database cannot be opened", func() {
			cfg.DBDriver = "mysql"
			err := run(context.Background(), cfg, logger.Nop())

			convey.Convey("Then run fails before serving", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop exits with its context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("system metrics updater did not stop")
			}
		})
	})
}
