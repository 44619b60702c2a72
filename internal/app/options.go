package service

import (
	"time"

	"github.com/okian/stork/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of mail workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the mail queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSendTimeout bounds each mail delivery.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

// WithAdminEmail sets the single email allowed to use admin operations.
func WithAdminEmail(email string) Option {
	return func(s *Service) {
		s.adminEmail = email
	}
}

// WithBaseURL sets the public site URL used in verification links.
func WithBaseURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.baseURL = url
		}
	}
}

// WithVerificationTTL sets how long verification tokens stay valid.
func WithVerificationTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.verificationTTL = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.base = l
		}
	}
}
