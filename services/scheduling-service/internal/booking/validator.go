package booking

import (
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/timemath"
)

// State is a step of a single validation pass.
type State int

const (
	Received State = iota
	TimeChecked
	BoundsChecked
	GridChecked
	ConflictChecked
	Accepted
	Rejected
)

func (s State) String() string {
	switch s {
	case Received:
		return "received"
	case TimeChecked:
		return "time_checked"
	case BoundsChecked:
		return "bounds_checked"
	case GridChecked:
		return "grid_checked"
	case ConflictChecked:
		return "conflict_checked"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Pass is the outcome of validating one candidate start.
type Pass struct {
	// State is Accepted, Rejected, or the last step reached when the pass
	// stopped early on purpose (see Validator.Precheck).
	State State
	// Reached is the last step that succeeded.
	Reached   State
	Config    model.Availability
	Date      timemath.Date
	Window    availability.Window
	Candidate availability.Interval
}

type Validator struct {
	now func() time.Time
}

func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Validate runs every step against the supplied existing intervals.
func (v *Validator) Validate(cfg model.Availability, start time.Time, existing []availability.Interval) (Pass, error) {
	p, err := v.Precheck(cfg, start)
	if err != nil {
		return p, err
	}
	if err := p.CheckConflict(existing); err != nil {
		return p, err
	}
	return p.Accept(), nil
}

// Precheck runs the steps that need no appointment data: future, bounds and grid.
func (v *Validator) Precheck(cfg model.Availability, start time.Time) (Pass, error) {
	p := Pass{State: Received, Reached: Received, Config: cfg}
	start = start.UTC()

	if !start.After(v.now()) {
		return p.reject(model.Errorf(model.KindPastAppointment, "appointment must be in the future"))
	}
	p.advance(TimeChecked)

	loc, err := timemath.LoadZone(cfg.Timezone)
	if err != nil {
		return p.reject(err)
	}
	p.Date = timemath.DateOf(start, loc)
	w, err := availability.WorkWindow(cfg, p.Date)
	if err != nil {
		return p.reject(err)
	}
	p.Window = w
	p.Candidate = availability.Interval{Start: start, End: start.Add(cfg.Duration())}

	if p.Candidate.Start.Before(w.Start) || p.Candidate.End.After(w.End) {
		return p.reject(model.Errorf(model.KindOutsideWorkingHours,
			"appointment must be within working hours (%s to %s %s)", cfg.StartTime, cfg.EndTime, cfg.Timezone))
	}
	p.advance(BoundsChecked)

	step := cfg.Step()
	if offset := start.Sub(w.Start); offset%step != 0 {
		e := model.Errorf(model.KindInvalidSlotAlignment, "appointment must start at a valid slot time")
		next := w.Start.Add(((offset + step - 1) / step) * step)
		if !next.Add(cfg.Duration()).After(w.End) {
			e.NextAvailableSlot = &next
		}
		return p.reject(e)
	}
	p.advance(GridChecked)
	return p, nil
}

// CheckConflict runs the conflict step on a pass that cleared Precheck.
func (p *Pass) CheckConflict(existing []availability.Interval) error {
	if availability.Overlaps(p.Candidate, existing) {
		p.State = Rejected
		return model.Errorf(model.KindSlotAlreadyBooked, "time slot is already booked")
	}
	p.advance(ConflictChecked)
	return nil
}

func (p Pass) Accept() Pass {
	p.advance(Accepted)
	return p
}

// Appointment builds the record to persist for an accepted pass.
func (p Pass) Appointment(req BookRequest) model.Appointment {
	title := req.AppointmentTitle
	if title == "" {
		title = model.DefaultAppointmentTitle
	}
	return model.Appointment{
		Title:          title,
		Description:    req.Description,
		StartTimeUTC:   p.Candidate.Start,
		EndTimeUTC:     p.Candidate.End,
		Status:         model.StatusScheduled,
		ClientEmail:    req.ClientEmail,
		ClientTimezone: req.ClientTimezone,
	}
}

func (p *Pass) advance(s State) {
	p.State = s
	p.Reached = s
}

func (p Pass) reject(err error) (Pass, error) {
	p.State = Rejected
	return p, err
}
