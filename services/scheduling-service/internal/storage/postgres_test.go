package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

var apptColumns = []string{"id", "title", "description", "start_time_utc", "end_time_utc", "status", "meeting_link",
	"confirmation_sent", "one_hour_reminder_sent", "client_email", "client_timezone", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func sampleAppointment() model.Appointment {
	start := time.Date(2030, time.January, 15, 14, 0, 0, 0, time.UTC)
	return model.Appointment{
		Title:          "Intro call",
		StartTimeUTC:   start,
		EndTimeUTC:     start.Add(20 * time.Minute),
		Status:         model.StatusScheduled,
		ClientEmail:    "client@example.com",
		ClientTimezone: "Asia/Kathmandu",
	}
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestGetAvailabilityNotConfigured(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM availability WHERE id = 1").WillReturnError(pgx.ErrNoRows)

	_, err := NewPostgres(mock).GetAvailability(context.Background())
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateAppointmentWritesOutbox(t *testing.T) {
	mock := newMock(t)
	appt := sampleAppointment()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(anyArgs(10)...).
		WillReturnRows(pgxmock.NewRows(apptColumns).AddRow(
			"6f1c1c8e-0000-4000-8000-000000000001", appt.Title, "", appt.StartTimeUTC, appt.EndTimeUTC,
			"scheduled", "", false, false, appt.ClientEmail, appt.ClientTimezone, now, now))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs("appointment", "6f1c1c8e-0000-4000-8000-000000000001", "booking.appointment.booked.v1",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	created, err := NewPostgres(mock).CreateAppointment(context.Background(), appt)
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if created.ID == "" || created.Status != model.StatusScheduled {
		t.Fatalf("unexpected appointment %+v", created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateAppointmentExclusionViolation(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(anyArgs(10)...).
		WillReturnError(&pgconn.PgError{Code: "23P01", ConstraintName: "appointments_no_overlap"})
	mock.ExpectRollback()

	_, err := NewPostgres(mock).CreateAppointment(context.Background(), sampleAppointment())
	if !errors.Is(err, model.ErrSlotAlreadyBooked) {
		t.Fatalf("expected SlotAlreadyBooked, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetMeetingLinkMissingRow(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("UPDATE appointments SET meeting_link").
		WithArgs("missing", "https://meet.google.com/abc").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewPostgres(mock).SetMeetingLink(context.Background(), "missing", "https://meet.google.com/abc")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestListActiveBetween(t *testing.T) {
	mock := newMock(t)
	appt := sampleAppointment()
	from := appt.StartTimeUTC.Add(-time.Hour)
	to := appt.StartTimeUTC.Add(8 * time.Hour)

	mock.ExpectQuery("WHERE status <> 'cancelled'").
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows(apptColumns).AddRow(
			"a1", appt.Title, "", appt.StartTimeUTC, appt.EndTimeUTC,
			"completed", "https://meet.google.com/x", true, false, appt.ClientEmail, appt.ClientTimezone, time.Now(), time.Now()))

	got, err := NewPostgres(mock).ListActiveBetween(context.Background(), from, to)
	if err != nil {
		t.Fatalf("ListActiveBetween: %v", err)
	}
	if len(got) != 1 || got[0].Status != model.StatusCompleted || !got[0].RemindersSent.Confirmation {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestIsNotFoundMalformedUUID(t *testing.T) {
	if !IsNotFound(&pgconn.PgError{Code: "22P02"}) {
		t.Fatalf("expected malformed uuid to be treated as not found")
	}
	if IsNotFound(errors.New("connection refused")) {
		t.Fatalf("unexpected not found")
	}
}
