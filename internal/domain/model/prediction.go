// Package model contains domain models passed between layers.
package model

import "time"

// Owner identifies who submitted a prediction. The scorer never reads it.
type Owner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Guess holds the six attributes that are scored.
type Guess struct {
	BirthDate time.Time `json:"birth_date"` // calendar date, UTC midnight
	BirthTime ClockTime `json:"birth_time"` // time of day
	Weight    float64   `json:"weight"`     // kilograms
	Height    float64   `json:"height"`     // centimeters
	EyeColor  string    `json:"eye_color"`  // EyeColors id
	HairColor string    `json:"hair_color"` // HairColors id
}

// Prediction is one participant's full set of guesses.
type Prediction struct {
	ID    string `json:"id"`
	Owner Owner  `json:"owner"`
	Guess

	ConnectionTypes []ConnectionType `json:"connection_types,omitempty"`
	SubmittedAt     time.Time        `json:"submitted_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ActualResult is the ground truth entered after the birth.
type ActualResult struct {
	Guess

	ID        string    `json:"id,omitempty"`
	EnteredBy string    `json:"entered_by,omitempty"`
	EnteredAt time.Time `json:"entered_at"`
}

// ConnectionType describes how a participant knows the family.
type ConnectionType string

// Known connection types.
const (
	ConnectionFamily  ConnectionType = "family"
	ConnectionFriends ConnectionType = "friends"
)

// Role of a participant.
type Role string

// Known roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Participant is a person who submitted a prediction.
type Participant struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Role            Role       `json:"role"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Verified reports whether the participant confirmed their email.
func (p Participant) Verified() bool { return p.EmailVerifiedAt != nil }

// VerificationToken proves ownership of an email address.
type VerificationToken struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the token is no longer usable at now.
func (t VerificationToken) Expired(now time.Time) bool { return t.ExpiresAt.Before(now) }

// Settings are the global switches of the pool.
type Settings struct {
	SubmissionsLocked bool      `json:"submissions_locked"`
	WinnerModeActive  bool      `json:"winner_mode_active"`
	LockDate          time.Time `json:"lock_date"`
}

// SettingsPatch changes only the non-nil fields.
type SettingsPatch struct {
	SubmissionsLocked *bool `json:"submissions_locked,omitempty"`
	WinnerModeActive  *bool `json:"winner_mode_active,omitempty"`
}

// Apply returns s with the patch applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.SubmissionsLocked != nil {
		s.SubmissionsLocked = *p.SubmissionsLocked
	}
	if p.WinnerModeActive != nil {
		s.WinnerModeActive = *p.WinnerModeActive
	}
	return s
}
