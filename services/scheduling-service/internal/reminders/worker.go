package reminders

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/email"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/lock"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

type Store interface {
	ListDueReminders(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	MarkOneHourReminderSent(ctx context.Context, id string) error
}

// Worker emails the one-hour reminder for upcoming scheduled appointments.
// Sweeps are serialized through the locker so replicas do not double-send.
type Worker struct {
	store    Store
	sender   email.Sender
	locker   lock.Locker
	logger   *slog.Logger
	metrics  *metrics.Scheduling
	interval time.Duration
	lead     time.Duration
	now      func() time.Time
}

type WorkerConfig struct {
	Interval time.Duration
	Lead     time.Duration
}

func NewWorker(store Store, sender email.Sender, locker lock.Locker, logger *slog.Logger, m *metrics.Scheduling, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Lead <= 0 {
		cfg.Lead = time.Hour
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Worker{
		store:    store,
		sender:   sender,
		locker:   locker,
		logger:   logger,
		metrics:  m,
		interval: cfg.Interval,
		lead:     cfg.Lead,
		now:      time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				w.logger.Error("reminder sweep failed", "err", err)
			}
		}
	}
}

// Sweep sends every due reminder once and returns how many went out.
// Failed sends stay unflagged and are retried on the next sweep.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	lockCtx, cancel := context.WithTimeout(ctx, w.interval/2)
	release, err := w.locker.Acquire(lockCtx, "reminders")
	cancel()
	if err != nil {
		// Another replica is sweeping.
		return 0, nil
	}
	defer release()

	now := w.now().UTC()
	due, err := w.store.ListDueReminders(ctx, now, now.Add(w.lead))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, appt := range due {
		msg, err := email.Reminder(appt)
		if err == nil {
			err = w.sender.Send(ctx, msg)
		}
		if err == nil {
			err = w.store.MarkOneHourReminderSent(ctx, appt.ID)
		}
		w.metrics.ObserveReminder(err == nil)
		if err != nil {
			w.logger.Warn("reminder failed", "appointment_id", appt.ID, "err", err)
			continue
		}
		sent++
	}
	return sent, nil
}
