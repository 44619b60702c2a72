// Package mail delivers outbound email through an HTTP email API or the log.
package mail

import (
	"context"
	"errors"
	"time"
)

// Message kinds.
const (
	KindVerification = "verification"
)

// Message is one outbound email.
type Message struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	HTML     string    `json:"html"`
	Text     string    `json:"text"`
	QueuedAt time.Time `json:"queued_at"`
}

// Mailer sends a message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// Sentinel kinds for mail errors.
var (
	ErrMissingAPIKey    = errors.New("mail api key not specified")
	ErrMissingFrom      = errors.New("mail sender not specified")
	ErrMissingRecipient = errors.New("mail recipient not specified")
	ErrMissingContent   = errors.New("mail subject or body missing")
)

func (m Message) validate() error {
	switch {
	case m.To == "":
		return ErrMissingRecipient
	case m.Subject == "" || (m.HTML == "" && m.Text == ""):
		return ErrMissingContent
	}
	return nil
}
