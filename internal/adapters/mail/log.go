package mail

import (
	"context"

	"github.com/okian/stork/pkg/logger"
)

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log logger.Logger
}

var _ Mailer = (*LogMailer)(nil)

// NewLogMailer returns a mailer that logs through l.
func NewLogMailer(l logger.Logger) *LogMailer {
	return &LogMailer{log: l}
}

// Send logs the recipient, subject and plain text body.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	m.log.Info(ctx, "mail not sent, no api key configured",
		logger.String("id", msg.ID),
		logger.String("kind", msg.Kind),
		logger.String("to", msg.To),
		logger.String("subject", msg.Subject),
		logger.String("text", msg.Text))
	return nil
}
