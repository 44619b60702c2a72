// Package repository defines the prediction pool store and its SQL implementation.
package repository

import (
	"context"

	"github.com/okian/stork/internal/domain/model"
)

// Store provides read/write access to the pool state.
type Store interface {
	// UpsertPrediction stores the guess for the participant with owner.Email,
	// creating the participant when missing. It reports whether an existing
	// prediction was overwritten.
	UpsertPrediction(ctx context.Context, owner model.Owner, connections []model.ConnectionType, g model.Guess) (model.Prediction, bool, error)
	// GetPrediction returns ErrNotFound for an unknown id.
	GetPrediction(ctx context.Context, id string) (model.Prediction, error)
	// ListPredictions returns all predictions ordered by submission time, then id.
	ListPredictions(ctx context.Context) ([]model.Prediction, error)
	FindPredictionByEmail(ctx context.Context, email string) (model.Prediction, error)
	UpdatePrediction(ctx context.Context, id string, patch model.PredictionPatch) (model.Prediction, error)
	// DeletePrediction also removes the owner and their tokens.
	DeletePrediction(ctx context.Context, id string) error

	// SaveActualResult overwrites the latest result or creates the first one.
	SaveActualResult(ctx context.Context, r model.ActualResult) (model.ActualResult, error)
	// LatestActualResult returns the most recently entered result or ErrNotFound.
	LatestActualResult(ctx context.Context) (model.ActualResult, error)

	GetParticipant(ctx context.Context, email string) (model.Participant, error)
	// MarkEmailVerified creates the participant when missing.
	MarkEmailVerified(ctx context.Context, email string) (model.Participant, error)
	SetRole(ctx context.Context, email string, role model.Role) error

	// ReplaceVerificationToken drops every token of the email and stores t.
	ReplaceVerificationToken(ctx context.Context, t model.VerificationToken) error
	// ConsumeVerificationToken deletes the token. It returns ErrNotFound for
	// an unknown pair and ErrTokenExpired when the token was stale.
	ConsumeVerificationToken(ctx context.Context, email, token string) error

	UpsertAccessCode(ctx context.Context, c model.AccessCode) error
	// RedeemAccessCode checks the code and increments its usage atomically.
	RedeemAccessCode(ctx context.Context, code string) (model.AccessCode, error)

	// GetSettings creates the defaults on first use.
	GetSettings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, s model.Settings) (model.Settings, error)

	// ClearAll deletes predictions, results, tokens and every participant
	// except keepEmail.
	ClearAll(ctx context.Context, keepEmail string) error

	// Count returns the number of stored predictions.
	Count(ctx context.Context) int

	Close() error
}
