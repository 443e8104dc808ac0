package followup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/email"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/meet"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

type AppointmentMarker interface {
	SetMeetingLink(ctx context.Context, id, link string) error
	MarkConfirmationSent(ctx context.Context, id string) error
}

// Confirmation creates the meeting link, stores it, emails the client and
// flags the confirmation as sent. A failed link stops the chain so the
// client is never sent a confirmation without one.
type Confirmation struct {
	links   meet.Creator
	store   AppointmentMarker
	sender  email.Sender
	retry   RetryPolicy
	logger  *slog.Logger
	metrics *metrics.Scheduling
}

func NewConfirmation(links meet.Creator, store AppointmentMarker, sender email.Sender, retry RetryPolicy, logger *slog.Logger, m *metrics.Scheduling) *Confirmation {
	return &Confirmation{links: links, store: store, sender: sender, retry: retry, logger: logger, metrics: m}
}

func (c *Confirmation) Handle(ctx context.Context, appt model.Appointment) error {
	link, err := Retry(ctx, c.retry, func() (string, error) { return c.links.Create(ctx, appt) })
	c.metrics.ObserveFollowup("meeting_link", err == nil)
	if err != nil {
		return fmt.Errorf("create meeting link: %w", err)
	}

	if link != "" {
		err := retryErr(ctx, c.retry, func() error { return c.store.SetMeetingLink(ctx, appt.ID, link) })
		c.metrics.ObserveFollowup("store_link", err == nil)
		if err != nil {
			return fmt.Errorf("store meeting link: %w", err)
		}
		appt.MeetingLink = link
	}

	msg, err := email.Confirmation(appt)
	if err != nil {
		return err
	}
	err = retryErr(ctx, c.retry, func() error { return c.sender.Send(ctx, msg) })
	c.metrics.ObserveFollowup("email", err == nil)
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}

	if err := retryErr(ctx, c.retry, func() error { return c.store.MarkConfirmationSent(ctx, appt.ID) }); err != nil {
		return fmt.Errorf("mark confirmation sent: %w", err)
	}
	c.logger.Info("confirmation sent", "appointment_id", appt.ID, "has_link", link != "")
	return nil
}
