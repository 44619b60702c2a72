package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/stork/internal/adapters/http/api"
	"github.com/okian/stork/internal/adapters/http/swagger"
	"github.com/okian/stork/internal/adapters/mail"
	"github.com/okian/stork/internal/adapters/mq/worker"
	"github.com/okian/stork/internal/adapters/repository"
	service "github.com/okian/stork/internal/app"
	"github.com/okian/stork/internal/config"
	"github.com/okian/stork/pkg/logger"
	"github.com/okian/stork/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "stork exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the store, mail pipeline and HTTP server, then blocks until ctx
// is cancelled or a component fails.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	lockDate, err := cfg.ParsedLockDate()
	if err != nil {
		return err
	}

	store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN, repository.WithDefaultLockDate(lockDate))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "close store", logger.Error(err))
		}
	}()

	mailer, err := newMailer(cfg, log)
	if err != nil {
		return err
	}

	svc := newService(cfg, store, mailer, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	srv := newHTTPServer(ctx, cfg, svc, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return store.RunMetricsLoop(gctx) })
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		// Drain queued verification mail after the last request is done.
		return errors.Join(err, svc.Stop(shutdownCtx))
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newMailer sends through the mail API when a key is configured and logs
// messages otherwise.
func newMailer(cfg *config.Config, log logger.Logger) (worker.Mailer, error) {
	if cfg.MailAPIKey == "" {
		log.Warn(context.Background(), "mail_api_key not set; verification mail is logged, not sent")
		return mail.NewLogMailer(log.Named("mail")), nil
	}
	c, err := mail.NewHTTPClient(mail.HTTPConfig{
		APIKey:  cfg.MailAPIKey,
		BaseURL: cfg.MailAPIURL,
		From:    cfg.MailFrom,
		Timeout: cfg.MailTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("mail client: %w", err)
	}
	return c, nil
}

func newService(cfg *config.Config, store repository.Store, mailer worker.Mailer, log logger.Logger) *service.Service {
	return service.New(store, mailer,
		service.WithLogger(log),
		service.WithAdminEmail(cfg.AdminEmail),
		service.WithBaseURL(cfg.BaseURL),
		service.WithWorkerCount(cfg.MailWorkers),
		service.WithQueueSize(cfg.MailQueueSize),
		service.WithSendTimeout(cfg.MailTimeout()),
		service.WithVerificationTTL(cfg.VerificationTTL()),
	)
}

func newHTTPServer(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithLogger(log),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithTrustProxy(cfg.TrustProxy),
	)
	apiServer.Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater refreshes process metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
