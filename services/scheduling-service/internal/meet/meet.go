// Package meet creates video conference links for booked appointments.
package meet

import (
	"context"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

type Creator interface {
	// Create returns the join URL. An empty URL with a nil error means
	// conferencing is disabled.
	Create(ctx context.Context, appt model.Appointment) (string, error)
}

type Noop struct{}

func (Noop) Create(context.Context, model.Appointment) (string, error) { return "", nil }
