package meet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	RefreshToken string
	CalendarID   string
}

func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Google inserts a calendar event with a Meet conference on the provider's
// calendar and invites the client.
type Google struct {
	events     *calendar.EventsService
	calendarID string
}

func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	if !cfg.Enabled() {
		return nil, errors.New("meet: google client id, secret and refresh token are required")
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarEventsScope},
	}
	client := oc.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("meet: calendar service: %w", err)
	}
	return newGoogle(svc, cfg.CalendarID), nil
}

func newGoogle(svc *calendar.Service, calendarID string) *Google {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Google{events: svc.Events, calendarID: calendarID}
}

func (g *Google) Create(ctx context.Context, appt model.Appointment) (string, error) {
	event := &calendar.Event{
		Summary:     appt.Title,
		Description: appt.Description,
		Start: &calendar.EventDateTime{
			DateTime: appt.StartTimeUTC.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendar.EventDateTime{
			DateTime: appt.EndTimeUTC.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		Attendees: []*calendar.EventAttendee{{Email: appt.ClientEmail}},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := g.events.Insert(g.calendarID, event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("meet: insert event: %w", err)
	}
	if link := joinURL(created); link != "" {
		return link, nil
	}
	return "", errors.New("meet: calendar returned no conference link")
}

func joinURL(ev *calendar.Event) string {
	if ev.HangoutLink != "" {
		return ev.HangoutLink
	}
	if ev.ConferenceData == nil {
		return ""
	}
	for _, ep := range ev.ConferenceData.EntryPoints {
		if ep.EntryPointType == "video" && ep.Uri != "" {
			return ep.Uri
		}
	}
	return ""
}
