package model

import (
	"strings"
	"time"
)

// AccessCode gates entry to the pool. Codes are stored upper-case.
type AccessCode struct {
	Code        string         `json:"code"`
	Type        ConnectionType `json:"type"`
	Description string         `json:"description,omitempty"`
	Active      bool           `json:"active"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	MaxUses     *int           `json:"max_uses,omitempty"`
	UsedCount   int            `json:"used_count"`
}

// Check reports why the code cannot be redeemed at now, or nil.
func (c AccessCode) Check(now time.Time) error {
	switch {
	case !c.Active:
		return ErrAccessCodeInactive
	case c.ExpiresAt != nil && c.ExpiresAt.Before(now):
		return ErrAccessCodeExpired
	case c.MaxUses != nil && c.UsedCount >= *c.MaxUses:
		return ErrAccessCodeExhausted
	}
	return nil
}

// NormalizeAccessCode trims and upper-cases a code.
func NormalizeAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
