package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/lock"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/timemath"
)

type AvailabilityReader interface {
	GetAvailability(ctx context.Context) (model.Availability, error)
}

type AppointmentStore interface {
	// ListActiveBetween returns non-cancelled appointments overlapping [from, to).
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	CreateAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error)
}

// FollowupQueue accepts post-commit work. Submit must not block.
type FollowupQueue interface {
	Submit(appt model.Appointment) bool
}

type Deps struct {
	Availability AvailabilityReader
	Appointments AppointmentStore
	Locker       lock.Locker
	Followup     FollowupQueue
	Now          func() time.Time
	Metrics      *metrics.Scheduling
	Logger       *slog.Logger
}

type Service struct {
	availability AvailabilityReader
	appointments AppointmentStore
	locker       lock.Locker
	followup     FollowupQueue
	validator    *Validator
	metrics      *metrics.Scheduling
	logger       *slog.Logger
	tracer       trace.Tracer
}

func NewService(d Deps) *Service {
	if d.Locker == nil {
		d.Locker = lock.NewLocal()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		availability: d.Availability,
		appointments: d.Appointments,
		locker:       d.Locker,
		followup:     d.Followup,
		validator:    NewValidator(d.Now),
		metrics:      d.Metrics,
		logger:       d.Logger,
		tracer:       otel.Tracer("slotbook/booking"),
	}
}

// Book validates req and reserves the slot. Follow-up work is queued after
// the commit and never affects the result.
func (s *Service) Book(ctx context.Context, req BookRequest) (model.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Book")
	defer span.End()

	started := time.Now()
	appt, err := s.book(ctx, req)

	outcome := "accepted"
	if err != nil {
		if kind := model.KindOf(err); kind != "" {
			outcome = string(kind)
		} else {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, "booking failed")
		}
	}
	span.SetAttributes(attribute.String("booking.outcome", outcome))
	s.metrics.ObserveBooking(outcome, time.Since(started).Seconds())
	return appt, err
}

func (s *Service) book(ctx context.Context, req BookRequest) (model.Appointment, error) {
	req, start, err := req.Normalize()
	if err != nil {
		return model.Appointment{}, err
	}
	cfg, err := s.availability.GetAvailability(ctx)
	if err != nil {
		return model.Appointment{}, err
	}

	pass, err := s.validator.Precheck(cfg, start)
	if err != nil {
		return model.Appointment{}, err
	}

	release, err := s.locker.Acquire(ctx, pass.Date.String())
	if err != nil {
		return model.Appointment{}, fmt.Errorf("booking: acquire day lock: %w", err)
	}
	defer release()

	existing, err := s.appointments.ListActiveBetween(ctx, pass.Window.Start, pass.Window.End)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := pass.CheckConflict(availability.ActiveIntervals(existing)); err != nil {
		return model.Appointment{}, err
	}

	created, err := s.appointments.CreateAppointment(ctx, pass.Accept().Appointment(req))
	if err != nil {
		return model.Appointment{}, err
	}
	release()

	s.logger.Info("appointment booked",
		"appointment_id", created.ID,
		"start_time_utc", created.StartTimeUTC.Format(time.RFC3339),
		"date", pass.Date.String(),
	)
	if s.followup != nil {
		s.followup.Submit(created)
	}
	return created, nil
}

type Slot struct {
	Start time.Time
	End   time.Time
}

type SlotList struct {
	Date     timemath.Date
	Timezone string
	Slots    []Slot
}

// TimeSlots renders slot starts as UTC "HH:mm".
func (l SlotList) TimeSlots() []string {
	out := make([]string, 0, len(l.Slots))
	for _, s := range l.Slots {
		out = append(out, s.Start.UTC().Format("15:04"))
	}
	return out
}

func (s *Service) Slots(ctx context.Context, date timemath.Date) (SlotList, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Slots", trace.WithAttributes(attribute.String("date", date.String())))
	defer span.End()

	cfg, err := s.availability.GetAvailability(ctx)
	if err != nil {
		return SlotList{}, err
	}
	w, err := availability.WorkWindow(cfg, date)
	if err != nil {
		return SlotList{}, err
	}
	existing, err := s.appointments.ListActiveBetween(ctx, w.Start, w.End)
	if err != nil {
		return SlotList{}, err
	}
	seq, err := availability.Generate(cfg, date, availability.ActiveIntervals(existing))
	if err != nil {
		return SlotList{}, err
	}

	list := SlotList{Date: date, Timezone: cfg.Timezone, Slots: []Slot{}}
	for start := range seq {
		list.Slots = append(list.Slots, Slot{Start: start, End: start.Add(cfg.Duration())})
	}
	return list, nil
}
