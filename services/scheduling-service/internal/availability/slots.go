package availability

import (
	"iter"
	"slices"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/timemath"
)

// Window is the provider's working window for one calendar date, in UTC.
type Window struct {
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// Validate checks a configuration before it is stored or used.
func Validate(cfg model.Availability) error {
	start, err := timemath.ParseClock(cfg.StartTime)
	if err != nil {
		return err
	}
	end, err := timemath.ParseClock(cfg.EndTime)
	if err != nil {
		return err
	}
	if end.Minutes() <= start.Minutes() {
		return model.Errorf(model.KindInvalidConfig, "endTime %s must be after startTime %s", cfg.EndTime, cfg.StartTime)
	}
	if _, err := timemath.LoadZone(cfg.Timezone); err != nil {
		return err
	}
	if cfg.SlotDuration <= 0 {
		return model.Errorf(model.KindInvalidConfig, "slotDuration must be positive, got %d", cfg.SlotDuration)
	}
	if cfg.BufferBetweenSlots < 0 {
		return model.Errorf(model.KindInvalidConfig, "bufferBetweenSlots must not be negative, got %d", cfg.BufferBetweenSlots)
	}
	return nil
}

func WorkWindow(cfg model.Availability, date timemath.Date) (Window, error) {
	if err := Validate(cfg); err != nil {
		return Window{}, err
	}
	// Validate already parsed these; errors cannot occur here.
	start, _ := timemath.ParseClock(cfg.StartTime)
	end, _ := timemath.ParseClock(cfg.EndTime)
	loc, _ := timemath.LoadZone(cfg.Timezone)
	return Window{
		Start:    timemath.At(date, start, loc),
		End:      timemath.At(date, end, loc),
		Location: loc,
	}, nil
}

// Generate yields the UTC slot starts for date. The grid is fixed: the cursor
// advances by slotDuration+buffer whether or not a slot is skipped for
// overlapping booked.
func Generate(cfg model.Availability, date timemath.Date, booked []Interval) (iter.Seq[time.Time], error) {
	w, err := WorkWindow(cfg, date)
	if err != nil {
		return nil, err
	}
	dur, step := cfg.Duration(), cfg.Step()
	if step <= 0 {
		return nil, model.Errorf(model.KindInvalidConfig, "slotDuration + bufferBetweenSlots must be positive")
	}
	booked = slices.Clone(booked)

	return func(yield func(time.Time) bool) {
		for cursor := w.Start; !cursor.Add(dur).After(w.End); cursor = cursor.Add(step) {
			if Overlaps(Interval{Start: cursor, End: cursor.Add(dur)}, booked) {
				continue
			}
			if !yield(cursor) {
				return
			}
		}
	}, nil
}

func Slots(cfg model.Availability, date timemath.Date, booked []Interval) ([]time.Time, error) {
	seq, err := Generate(cfg, date, booked)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}
