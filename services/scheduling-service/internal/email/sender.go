package email

import (
	"context"
	"log/slog"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers one message. Implementations must honor ctx cancellation.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NoopSender logs instead of sending, for deployments without mail settings.
type NoopSender struct {
	logger *slog.Logger
}

func NewNoopSender(logger *slog.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

func (s *NoopSender) Send(ctx context.Context, msg Message) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "email disabled, not sending", "to", msg.To, "subject", msg.Subject)
	}
	return nil
}
