package metrics

import "github.com/prometheus/client_golang/prometheus"

// Scheduling exposes booking and follow-up counters. A nil *Scheduling is a no-op.
type Scheduling struct {
	bookings      *prometheus.CounterVec
	bookLatency   prometheus.Histogram
	followups     *prometheus.CounterVec
	followupDrops prometheus.Counter
	reminders     *prometheus.CounterVec
}

func NewScheduling(reg prometheus.Registerer) *Scheduling {
	m := &Scheduling{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		bookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "duration_seconds",
			Help:      "Time spent validating and committing a booking",
			Buckets:   prometheus.DefBuckets,
		}),
		followups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "followup",
			Name:      "tasks_total",
			Help:      "Follow-up tasks by step and status",
		}, []string{"step", "status"}),
		followupDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "followup",
			Name:      "dropped_total",
			Help:      "Follow-up tasks dropped because the queue was full",
		}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "reminders",
			Name:      "sent_total",
			Help:      "Reminder emails by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookings, m.bookLatency, m.followups, m.followupDrops, m.reminders)
	return m
}

// ObserveBooking records one attempt. outcome is "accepted", an error kind, or "error".
func (m *Scheduling) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
	m.bookLatency.Observe(seconds)
}

func (m *Scheduling) ObserveFollowup(step string, ok bool) {
	if m == nil {
		return
	}
	m.followups.WithLabelValues(step, status(ok)).Inc()
}

func (m *Scheduling) ObserveFollowupDropped() {
	if m == nil {
		return
	}
	m.followupDrops.Inc()
}

func (m *Scheduling) ObserveReminder(ok bool) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(status(ok)).Inc()
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
