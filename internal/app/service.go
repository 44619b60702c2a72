// Package service implements the prediction pool operations used by the HTTP
// API and the CLI.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/stork/internal/adapters/mail"
	mailqueue "github.com/okian/stork/internal/adapters/mq/queue"
	"github.com/okian/stork/internal/adapters/mq/worker"
	"github.com/okian/stork/internal/adapters/repository"
	"github.com/okian/stork/internal/domain/model"
	"github.com/okian/stork/internal/domain/scoring"
	"github.com/okian/stork/pkg/logger"
	"github.com/okian/stork/pkg/metrics"
)

const (
	defaultWorkerCount     = 2
	defaultQueueSize       = 1024
	defaultSendTimeout     = 10 * time.Second
	defaultVerificationTTL = 24 * time.Hour
	defaultBaseURL         = "http://localhost:3000"
	tokenBytes             = 32
)

// Service implements the API dependencies for the prediction pool.
type Service struct {
	mu sync.RWMutex

	store  repository.Store
	mailer worker.Mailer
	queue  mailqueue.Queue
	pool   *worker.Pool

	workerCount     int
	queueSize       int
	sendTimeout     time.Duration
	adminEmail      string
	baseURL         string
	verificationTTL time.Duration
	now             func() time.Time

	started bool
	base    logger.Logger
	logger  logger.Logger
}

// New constructs a Service over store. Verification mail is handed to mailer
// by the worker pool once Start is called; mail queued earlier waits.
func New(store repository.Store, mailer worker.Mailer, opts ...Option) *Service {
	s := &Service{
		store:           store,
		mailer:          mailer,
		workerCount:     defaultWorkerCount,
		queueSize:       defaultQueueSize,
		sendTimeout:     defaultSendTimeout,
		baseURL:         defaultBaseURL,
		verificationTTL: defaultVerificationTTL,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.base == nil {
		s.base = logger.Get()
	}
	s.logger = s.base.Named("service")
	s.queue = s.newQueue()
	return s
}

func (s *Service) newQueue() mailqueue.Queue {
	return mailqueue.NewInMemoryQueue(mailqueue.WithCapacity(s.queueSize))
}

// Start launches the mail workers. The workers outlive ctx cancellation and
// stop only in Stop, so queued mail is drained on shutdown.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.pool = worker.NewPool(s.workerCount, s.queue, s.mailer,
		worker.WithLogger(s.base),
		worker.WithSendTimeout(s.sendTimeout))
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop closes the mail queue and waits for queued mail to be sent. A fresh
// queue takes its place, so mail queued while stopped waits for the next Start.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping prediction service...")

	err := s.pool.Shutdown(ctx)
	s.started = false
	s.queue = s.newQueue()
	if err != nil {
		return fmt.Errorf("stop mail workers: %w", err)
	}
	s.logger.Info(ctx, "prediction service stopped", logger.Int("mailSent", int(s.pool.Sent())))
	return nil
}

// SubmitResult reports what SubmitPrediction did.
type SubmitResult struct {
	Prediction         model.Prediction `json:"prediction"`
	Updated            bool             `json:"updated"`
	EmailVerified      bool             `json:"email_verified"`
	VerificationQueued bool             `json:"verification_email_sent"`
}

// SubmitPrediction stores the participant's prediction, replacing an earlier
// one with the same email. Unverified participants get a fresh verification
// email in locale. Mail problems never fail the submission.
func (s *Service) SubmitPrediction(ctx context.Context, in model.PredictionInput, locale string) (SubmitResult, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("load settings: %w", err)
	}
	if settings.SubmissionsLocked {
		return SubmitResult{}, ErrSubmissionsLocked
	}

	in.UserName = strings.TrimSpace(in.UserName)
	in.UserEmail = model.NormalizeEmail(in.UserEmail)
	if err := in.Validate(); err != nil {
		return SubmitResult{}, err
	}
	guess, err := in.Guess()
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	owner := model.Owner{Name: in.UserName, Email: in.UserEmail}
	p, updated, err := s.store.UpsertPrediction(ctx, owner, in.ConnectionTypes, guess)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("store prediction: %w", err)
	}
	if updated {
		metrics.RecordPredictionUpdated()
	} else {
		metrics.RecordPredictionSubmitted()
	}

	res := SubmitResult{Prediction: p, Updated: updated}
	participant, err := s.store.GetParticipant(ctx, owner.Email)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("load participant: %w", err)
	}
	res.EmailVerified = participant.Verified()
	if !res.EmailVerified {
		res.VerificationQueued = s.queueVerification(ctx, owner.Email, locale)
	}

	s.logger.Info(ctx, "prediction stored",
		logger.String("id", p.ID),
		logger.Bool("updated", updated),
		logger.Bool("verified", res.EmailVerified),
	)
	return res, nil
}

// ResendVerification issues a new verification email. It reports true
// without sending anything when the email is already verified.
func (s *Service) ResendVerification(ctx context.Context, email, locale string) (bool, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return false, ErrMissingEmail
	}

	participant, err := s.store.GetParticipant(ctx, email)
	switch {
	case err == nil && participant.Verified():
		return true, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return false, fmt.Errorf("load participant: %w", err)
	}

	if !s.queueVerification(ctx, email, locale) {
		return false, fmt.Errorf("queue verification email for %s: %w", email, ErrMailUnavailable)
	}
	return false, nil
}

// queueVerification replaces the token of email and queues the message.
func (s *Service) queueVerification(ctx context.Context, email, locale string) bool {
	token, err := newToken()
	if err != nil {
		s.logger.Error(ctx, "failed to generate verification token", logger.Error(err))
		return false
	}
	t := model.VerificationToken{Email: email, Token: token, ExpiresAt: s.now().Add(s.verificationTTL)}
	if err := s.store.ReplaceVerificationToken(ctx, t); err != nil {
		s.logger.Error(ctx, "failed to store verification token", logger.Error(err))
		return false
	}

	msg, err := mail.VerificationMessage(email, token, locale, s.baseURL)
	if err != nil {
		s.logger.Error(ctx, "failed to render verification email", logger.Error(err))
		return false
	}
	msg.QueuedAt = s.now()

	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if !q.Enqueue(ctx, msg) {
		metrics.RecordMailDropped()
		s.logger.Warn(ctx, "mail queue rejected verification email", logger.String("to", email))
		return false
	}
	metrics.RecordMailQueued()
	return true
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// VerifyEmail consumes the token and marks the email verified, creating the
// participant when needed.
func (s *Service) VerifyEmail(ctx context.Context, email, token string) (model.Participant, error) {
	email = model.NormalizeEmail(email)
	switch {
	case email == "":
		return model.Participant{}, ErrMissingEmail
	case token == "":
		return model.Participant{}, ErrMissingToken
	}

	if err := s.store.ConsumeVerificationToken(ctx, email, token); err != nil {
		return model.Participant{}, fmt.Errorf("consume token: %w", err)
	}
	p, err := s.store.MarkEmailVerified(ctx, email)
	if err != nil {
		return model.Participant{}, fmt.Errorf("mark verified: %w", err)
	}
	metrics.RecordEmailVerified()
	s.logger.Info(ctx, "email verified", logger.String("participant", p.ID))
	return p, nil
}

// GetPrediction returns one prediction by id.
func (s *Service) GetPrediction(ctx context.Context, id string) (model.Prediction, error) {
	return s.store.GetPrediction(ctx, id)
}

// ListPredictions returns every prediction in submission order.
func (s *Service) ListPredictions(ctx context.Context) ([]model.Prediction, error) {
	return s.store.ListPredictions(ctx)
}

// PredictionByEmail returns the participant's own prediction.
func (s *Service) PredictionByEmail(ctx context.Context, email string) (model.Prediction, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return model.Prediction{}, ErrMissingEmail
	}
	return s.store.FindPredictionByEmail(ctx, email)
}

// UpdatePrediction applies an admin correction.
func (s *Service) UpdatePrediction(ctx context.Context, adminEmail, id string, patch model.PredictionPatch) (model.Prediction, error) {
	if err := s.authorize(adminEmail); err != nil {
		return model.Prediction{}, err
	}
	if patch.Empty() {
		return model.Prediction{}, ErrEmptyPatch
	}
	if err := patch.Validate(); err != nil {
		return model.Prediction{}, err
	}
	return s.store.UpdatePrediction(ctx, id, patch)
}

// DeletePrediction removes a prediction together with its owner.
func (s *Service) DeletePrediction(ctx context.Context, adminEmail, id string) error {
	if err := s.authorize(adminEmail); err != nil {
		return err
	}
	if err := s.store.DeletePrediction(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "prediction deleted", logger.String("id", id))
	return nil
}

// SaveActualResult records the real birth details.
func (s *Service) SaveActualResult(ctx context.Context, adminEmail string, in model.ActualResultInput) (model.ActualResult, error) {
	if err := s.authorize(adminEmail); err != nil {
		return model.ActualResult{}, err
	}
	if err := in.Validate(); err != nil {
		return model.ActualResult{}, err
	}
	guess, err := in.Guess()
	if err != nil {
		return model.ActualResult{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	r, err := s.store.SaveActualResult(ctx, model.ActualResult{
		Guess:     guess,
		EnteredBy: model.NormalizeEmail(adminEmail),
		EnteredAt: s.now(),
	})
	if err != nil {
		return model.ActualResult{}, fmt.Errorf("save actual result: %w", err)
	}
	s.logger.Info(ctx, "actual result saved", logger.String("id", r.ID))
	return r, nil
}

// ActualResult returns the most recently entered result.
func (s *Service) ActualResult(ctx context.Context) (model.ActualResult, error) {
	r, err := s.store.LatestActualResult(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return model.ActualResult{}, ErrNoActualResult
	}
	return r, err
}

// WinnersResult is the ranking together with the result it was scored against.
type WinnersResult struct {
	Winners          []scoring.ScoredPrediction `json:"winners"`
	Actual           model.ActualResult         `json:"actual_results"`
	TotalPredictions int                        `json:"total_predictions"`
}

// Winners scores every prediction against the latest actual result.
func (s *Service) Winners(ctx context.Context) (WinnersResult, error) {
	actual, err := s.ActualResult(ctx)
	if err != nil {
		return WinnersResult{}, err
	}
	predictions, err := s.store.ListPredictions(ctx)
	if err != nil {
		metrics.RecordScoringError()
		return WinnersResult{}, fmt.Errorf("list predictions: %w", err)
	}

	start := time.Now()
	winners := scoring.CalculateWinners(predictions, actual)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordWinnerCalculation()

	return WinnersResult{Winners: winners, Actual: actual, TotalPredictions: len(predictions)}, nil
}

// Settings returns the global switches.
func (s *Service) Settings(ctx context.Context) (model.Settings, error) {
	return s.store.GetSettings(ctx)
}

// UpdateSettings applies patch to the current settings.
func (s *Service) UpdateSettings(ctx context.Context, adminEmail string, patch model.SettingsPatch) (model.Settings, error) {
	if err := s.authorize(adminEmail); err != nil {
		return model.Settings{}, err
	}
	current, err := s.store.GetSettings(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	updated, err := s.store.UpdateSettings(ctx, patch.Apply(current))
	if err != nil {
		return model.Settings{}, fmt.Errorf("update settings: %w", err)
	}
	s.logger.Info(ctx, "settings updated",
		logger.Bool("submissionsLocked", updated.SubmissionsLocked),
		logger.Bool("winnerModeActive", updated.WinnerModeActive),
	)
	return updated, nil
}

// IsAdmin reports whether email is the configured admin email.
func (s *Service) IsAdmin(email string) bool {
	return s.adminEmail != "" && model.NormalizeEmail(email) == model.NormalizeEmail(s.adminEmail)
}

func (s *Service) authorize(email string) error {
	if !s.IsAdmin(email) {
		return ErrForbidden
	}
	return nil
}

// CheckAdmin confirms admin access and promotes the participant's role. The
// admin must already be a participant.
func (s *Service) CheckAdmin(ctx context.Context, email string) (model.Participant, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return model.Participant{}, ErrMissingEmail
	}
	if err := s.authorize(email); err != nil {
		return model.Participant{}, err
	}

	p, err := s.store.GetParticipant(ctx, email)
	if err != nil {
		return model.Participant{}, err
	}
	if p.Role != model.RoleAdmin {
		if err := s.store.SetRole(ctx, email, model.RoleAdmin); err != nil {
			return model.Participant{}, fmt.Errorf("promote admin: %w", err)
		}
		p.Role = model.RoleAdmin
	}
	return p, nil
}

// ValidateAccessCode redeems an access code. On refusal the code is returned
// together with one of the model.ErrAccessCode* errors.
func (s *Service) ValidateAccessCode(ctx context.Context, code string) (model.AccessCode, error) {
	code = model.NormalizeAccessCode(code)
	if code == "" {
		return model.AccessCode{}, ErrMissingCode
	}
	c, err := s.store.RedeemAccessCode(ctx, code)
	if err != nil {
		return c, err
	}
	metrics.RecordAccessCodeRedeemed(string(c.Type))
	return c, nil
}

// ClearAll wipes every prediction, result and participant except the admin.
func (s *Service) ClearAll(ctx context.Context, adminEmail string) error {
	if err := s.authorize(adminEmail); err != nil {
		return err
	}
	if err := s.store.ClearAll(ctx, model.NormalizeEmail(s.adminEmail)); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	metrics.UpdateTotalPredictions(0)
	s.logger.Warn(ctx, "all pool data cleared", logger.String("by", model.NormalizeEmail(adminEmail)))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	queueLen := s.queue.Len(ctx)
	totalPredictions := s.store.Count(ctx)
	stats["queueLength"] = queueLen
	stats["totalPredictions"] = totalPredictions
	if s.pool != nil {
		stats["mailSent"] = s.pool.Sent()
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateTotalPredictions(totalPredictions)
	return stats
}
