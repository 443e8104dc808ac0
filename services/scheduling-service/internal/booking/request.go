package booking

import (
	"net/mail"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/timemath"
)

// BookRequest is a client booking. ClientTimezone is kept for display only.
type BookRequest struct {
	StartTimeUTC     string
	AppointmentTitle string
	Description      string
	ClientEmail      string
	ClientTimezone   string
}

// Normalize trims the request and checks the fields that do not depend on
// the provider configuration.
func (r BookRequest) Normalize() (BookRequest, time.Time, error) {
	r.StartTimeUTC = strings.TrimSpace(r.StartTimeUTC)
	r.AppointmentTitle = strings.TrimSpace(r.AppointmentTitle)
	r.Description = strings.TrimSpace(r.Description)
	r.ClientEmail = strings.TrimSpace(r.ClientEmail)
	r.ClientTimezone = strings.TrimSpace(r.ClientTimezone)

	if r.StartTimeUTC == "" {
		return r, time.Time{}, model.Errorf(model.KindInvalidTimeFormat, "startTimeUTC is required")
	}
	start, err := time.Parse(time.RFC3339, r.StartTimeUTC)
	if err != nil {
		return r, time.Time{}, model.Errorf(model.KindInvalidTimeFormat, "startTimeUTC %q must be an ISO-8601 instant", r.StartTimeUTC)
	}

	if !validEmail(r.ClientEmail) {
		return r, time.Time{}, model.Errorf(model.KindInvalidRequest, "clientEmail must be a valid email address")
	}
	if _, err := timemath.LoadZone(r.ClientTimezone); err != nil {
		return r, time.Time{}, model.Errorf(model.KindInvalidRequest, "clientTimezone must be an IANA timezone such as Asia/Kathmandu")
	}
	return r, start.UTC(), nil
}

func validEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return strings.Contains(s[at+1:], ".")
}
