package followup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

// Handler processes one booked appointment after commit.
type Handler interface {
	Handle(ctx context.Context, appt model.Appointment) error
}

type Config struct {
	Workers   int
	QueueSize int
	// Timeout bounds one task, retries included.
	Timeout time.Duration
}

// Dispatcher runs follow-up work on a bounded queue. Submit never blocks;
// a full queue drops the task and logs it.
type Dispatcher struct {
	handler Handler
	queue   chan model.Appointment
	workers int
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Scheduling
}

func NewDispatcher(h Handler, cfg Config, logger *slog.Logger, m *metrics.Scheduling) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Dispatcher{
		handler: h,
		queue:   make(chan model.Appointment, cfg.QueueSize),
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		logger:  logger,
		metrics: m,
	}
}

func (d *Dispatcher) Submit(appt model.Appointment) bool {
	select {
	case d.queue <- appt:
		return true
	default:
		d.metrics.ObserveFollowupDropped()
		d.logger.Warn("follow-up queue full, dropping task", "appointment_id", appt.ID)
		return false
	}
}

// Run blocks until ctx is done and in-flight tasks have finished.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case appt := <-d.queue:
			d.process(ctx, appt)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, appt model.Appointment) {
	// In-flight work finishes within its own timeout even during shutdown.
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.handler.Handle(taskCtx, appt); err != nil {
		d.logger.Warn("follow-up failed", "appointment_id", appt.ID, "err", err)
	}
}
