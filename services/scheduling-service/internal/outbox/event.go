package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

const (
	AggregateAppointment = "appointment"

	EventAppointmentBooked  = "booking.appointment.booked.v1"
	EventAppointmentUpdated = "booking.appointment.updated.v1"
	EventAppointmentDeleted = "booking.appointment.deleted.v1"
)

// Event is the envelope written to outbox_events. The Kafka topic equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type appointmentPayload struct {
	AppointmentID  string    `json:"appointmentId"`
	StartTimeUTC   time.Time `json:"startTimeUTC"`
	EndTimeUTC     time.Time `json:"endTimeUTC"`
	Status         string    `json:"status"`
	ClientEmail    string    `json:"clientEmail"`
	ClientTimezone string    `json:"clientTimezone"`
	OccurredAt     time.Time `json:"occurredAt"`
}

func AppointmentEvent(eventType string, appt model.Appointment, at time.Time) (Event, error) {
	payload, err := json.Marshal(appointmentPayload{
		AppointmentID:  appt.ID,
		StartTimeUTC:   appt.StartTimeUTC.UTC(),
		EndTimeUTC:     appt.EndTimeUTC.UTC(),
		Status:         string(appt.Status),
		ClientEmail:    appt.ClientEmail,
		ClientTimezone: appt.ClientTimezone,
		OccurredAt:     at.UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
