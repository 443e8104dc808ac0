package model

import "time"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return st, true
	default:
		return "", false
	}
}

const DefaultAppointmentTitle = "Appointment"

// Reminders tracks which notifications have gone out. Only the follow-up
// and reminder workers flip these outside of explicit admin updates.
type Reminders struct {
	Confirmation  bool
	OneHourBefore bool
}

type Appointment struct {
	ID             string
	Title          string
	Description    string
	StartTimeUTC   time.Time
	EndTimeUTC     time.Time
	Status         Status
	MeetingLink    string
	RemindersSent  Reminders
	ClientEmail    string
	ClientTimezone string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Active reports whether the appointment still holds its interval.
func (a Appointment) Active() bool {
	return a.Status != StatusCancelled
}

// AppointmentUpdate carries the admin-editable fields; nil means unchanged.
type AppointmentUpdate struct {
	Status        *Status
	Confirmation  *bool
	OneHourBefore *bool
}

func (u AppointmentUpdate) Empty() bool {
	return u.Status == nil && u.Confirmation == nil && u.OneHourBefore == nil
}

func (u AppointmentUpdate) Apply(a Appointment) Appointment {
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.Confirmation != nil {
		a.RemindersSent.Confirmation = *u.Confirmation
	}
	if u.OneHourBefore != nil {
		a.RemindersSent.OneHourBefore = *u.OneHourBefore
	}
	return a
}

// Reactivates reports whether applying u to a would bring a cancelled
// appointment back into conflict checks.
func (u AppointmentUpdate) Reactivates(a Appointment) bool {
	return !a.Active() && u.Status != nil && *u.Status != StatusCancelled
}
