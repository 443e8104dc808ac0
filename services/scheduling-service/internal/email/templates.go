package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

var detailsTemplate = template.Must(template.New("details").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: auto;">
<h2>{{.Title}}</h2>
<p>{{.Intro}}</p>
<table>
<tr><td><strong>Date:</strong></td><td>{{.Date}}</td></tr>
<tr><td><strong>Start:</strong></td><td>{{.Start}}</td></tr>
<tr><td><strong>End:</strong></td><td>{{.End}}</td></tr>
{{if .Link}}<tr><td><strong>Meeting:</strong></td><td><a href="{{.Link}}">Join meeting</a></td></tr>{{end}}
</table>
</div>`))

type details struct {
	Title string
	Intro string
	Date  string
	Start string
	End   string
	Link  string
}

// Confirmation describes a booked appointment in the client's own timezone.
func Confirmation(appt model.Appointment) (Message, error) {
	return render(appt, "Appointment confirmed: "+appt.Title, "Your appointment has been successfully scheduled.")
}

func Reminder(appt model.Appointment) (Message, error) {
	return render(appt, "Reminder: "+appt.Title+" starts soon", "Your appointment starts in about an hour.")
}

func render(appt model.Appointment, subject, intro string) (Message, error) {
	loc, err := time.LoadLocation(appt.ClientTimezone)
	if err != nil || appt.ClientTimezone == "" {
		loc = time.UTC
	}
	start := appt.StartTimeUTC.In(loc)
	end := appt.EndTimeUTC.In(loc)

	d := details{
		Title: appt.Title,
		Intro: intro,
		Date:  start.Format("Monday, 02 January 2006"),
		Start: start.Format("03:04 PM MST"),
		End:   end.Format("03:04 PM MST"),
	}
	if strings.HasPrefix(appt.MeetingLink, "http") {
		d.Link = appt.MeetingLink
	}

	var html bytes.Buffer
	if err := detailsTemplate.Execute(&html, d); err != nil {
		return Message{}, fmt.Errorf("email: render: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n\nDate: %s\nStart: %s\nEnd: %s\n", intro, d.Date, d.Start, d.End)
	if d.Link != "" {
		fmt.Fprintf(&text, "Meeting: %s\n", d.Link)
	}
	return Message{To: appt.ClientEmail, Subject: subject, Text: text.String(), HTML: html.String()}, nil
}
