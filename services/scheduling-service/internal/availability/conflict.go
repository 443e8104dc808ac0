package availability

import (
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

// Interval is half-open: [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether candidate intersects any of existing.
// Callers drop cancelled appointments first (see ActiveIntervals).
func Overlaps(candidate Interval, existing []Interval) bool {
	for _, b := range existing {
		if candidate.Start.Before(b.End) && b.Start.Before(candidate.End) {
			return true
		}
	}
	return false
}

func ActiveIntervals(appts []model.Appointment) []Interval {
	out := make([]Interval, 0, len(appts))
	for _, a := range appts {
		if !a.Active() {
			continue
		}
		out = append(out, Interval{Start: a.StartTimeUTC, End: a.EndTimeUTC})
	}
	return out
}
