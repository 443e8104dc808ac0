package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

// Memory is a process-local store for development and tests. It enforces the
// same non-overlap rule as the Postgres exclusion constraint. It keeps no outbox.
type Memory struct {
	mu    sync.RWMutex
	avail *model.Availability
	appts map[string]model.Appointment
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{appts: map[string]model.Appointment{}, now: time.Now}
}

func (m *Memory) GetAvailability(_ context.Context) (model.Availability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.avail == nil {
		return model.Availability{}, model.Errorf(model.KindNotFound, "availability is not configured")
	}
	return *m.avail, nil
}

func (m *Memory) UpsertAvailability(_ context.Context, a model.Availability) (model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if m.avail != nil {
		a.CreatedAt = m.avail.CreatedAt
	}
	m.avail = &a
	return a, nil
}

func (m *Memory) PatchAvailability(_ context.Context, p model.AvailabilityPatch, validate func(model.Availability) error) (model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.avail == nil {
		return model.Availability{}, model.Errorf(model.KindNotFound, "availability is not configured")
	}
	merged := p.Apply(*m.avail)
	if err := validate(merged); err != nil {
		return model.Availability{}, err
	}
	merged.UpdatedAt = m.now().UTC()
	m.avail = &merged
	return merged, nil
}

func (m *Memory) ListActiveBetween(_ context.Context, from, to time.Time) ([]model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Appointment{}
	for _, a := range m.appts {
		if a.Active() && a.StartTimeUTC.Before(to) && from.Before(a.EndTimeUTC) {
			out = append(out, a)
		}
	}
	sortByStart(out)
	return out, nil
}

func (m *Memory) ListAppointments(_ context.Context) ([]model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Appointment, 0, len(m.appts))
	for _, a := range m.appts {
		out = append(out, a)
	}
	sortByStart(out)
	return out, nil
}

func (m *Memory) GetAppointment(_ context.Context, id string) (model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appts[id]
	if !ok {
		return model.Appointment{}, appointmentNotFound(id)
	}
	return a, nil
}

func (m *Memory) CreateAppointment(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overlapsLocked(appt, "") {
		return model.Appointment{}, model.Errorf(model.KindSlotAlreadyBooked, "time slot is already booked")
	}
	now := m.now().UTC()
	appt.ID = uuid.NewString()
	appt.CreatedAt, appt.UpdatedAt = now, now
	m.appts[appt.ID] = appt
	return appt, nil
}

func (m *Memory) UpdateAppointment(_ context.Context, id string, upd model.AppointmentUpdate) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.appts[id]
	if !ok {
		return model.Appointment{}, appointmentNotFound(id)
	}
	next := upd.Apply(current)
	if upd.Reactivates(current) && m.overlapsLocked(next, id) {
		return model.Appointment{}, model.Errorf(model.KindSlotAlreadyBooked, "appointment overlaps another active appointment")
	}
	next.UpdatedAt = m.now().UTC()
	m.appts[id] = next
	return next, nil
}

func (m *Memory) DeleteAppointment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[id]; !ok {
		return appointmentNotFound(id)
	}
	delete(m.appts, id)
	return nil
}

func (m *Memory) SetMeetingLink(_ context.Context, id, link string) error {
	return m.mutate(id, func(a *model.Appointment) { a.MeetingLink = link })
}

func (m *Memory) MarkConfirmationSent(_ context.Context, id string) error {
	return m.mutate(id, func(a *model.Appointment) { a.RemindersSent.Confirmation = true })
}

func (m *Memory) MarkOneHourReminderSent(_ context.Context, id string) error {
	return m.mutate(id, func(a *model.Appointment) { a.RemindersSent.OneHourBefore = true })
}

func (m *Memory) ListDueReminders(_ context.Context, from, to time.Time) ([]model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Appointment{}
	for _, a := range m.appts {
		if a.Status != model.StatusScheduled || a.RemindersSent.OneHourBefore {
			continue
		}
		if a.StartTimeUTC.After(from) && !a.StartTimeUTC.After(to) {
			out = append(out, a)
		}
	}
	sortByStart(out)
	return out, nil
}

func (m *Memory) mutate(id string, fn func(*model.Appointment)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return appointmentNotFound(id)
	}
	fn(&a)
	a.UpdatedAt = m.now().UTC()
	m.appts[id] = a
	return nil
}

func (m *Memory) overlapsLocked(appt model.Appointment, skipID string) bool {
	for id, b := range m.appts {
		if id == skipID || !b.Active() {
			continue
		}
		if appt.StartTimeUTC.Before(b.EndTimeUTC) && b.StartTimeUTC.Before(appt.EndTimeUTC) {
			return true
		}
	}
	return false
}

func sortByStart(appts []model.Appointment) {
	slices.SortFunc(appts, func(a, b model.Appointment) int {
		return a.StartTimeUTC.Compare(b.StartTimeUTC)
	})
}
