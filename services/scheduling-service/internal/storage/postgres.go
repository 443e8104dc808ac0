package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/outbox"
)

// Postgres stores the configuration and appointments. Non-overlap of active
// appointments is enforced by the appointments_no_overlap exclusion constraint.
type Postgres struct {
	db     db.DB
	outbox *outbox.Repository
	now    func() time.Time
}

func NewPostgres(conn db.DB) *Postgres {
	return &Postgres{db: conn, outbox: outbox.NewRepository(), now: time.Now}
}

const availabilityColumns = `start_time, end_time, timezone, slot_duration, buffer_between_slots, created_at, updated_at`

func scanAvailability(row pgx.Row) (model.Availability, error) {
	var a model.Availability
	err := row.Scan(&a.StartTime, &a.EndTime, &a.Timezone, &a.SlotDuration, &a.BufferBetweenSlots, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *Postgres) GetAvailability(ctx context.Context) (model.Availability, error) {
	a, err := scanAvailability(s.db.QueryRow(ctx, `SELECT `+availabilityColumns+` FROM availability WHERE id = 1`))
	if err != nil {
		if IsNotFound(err) {
			return model.Availability{}, model.Errorf(model.KindNotFound, "availability is not configured")
		}
		return model.Availability{}, fmt.Errorf("storage: get availability: %w", err)
	}
	return a, nil
}

func (s *Postgres) UpsertAvailability(ctx context.Context, a model.Availability) (model.Availability, error) {
	out, err := scanAvailability(s.db.QueryRow(ctx, `
		INSERT INTO availability (id, start_time, end_time, timezone, slot_duration, buffer_between_slots)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			timezone = EXCLUDED.timezone,
			slot_duration = EXCLUDED.slot_duration,
			buffer_between_slots = EXCLUDED.buffer_between_slots,
			updated_at = now()
		RETURNING `+availabilityColumns,
		a.StartTime, a.EndTime, a.Timezone, a.SlotDuration, a.BufferBetweenSlots))
	if err != nil {
		return model.Availability{}, fmt.Errorf("storage: upsert availability: %w", err)
	}
	return out, nil
}

// PatchAvailability applies p under a row lock; validate sees the merged value.
func (s *Postgres) PatchAvailability(ctx context.Context, p model.AvailabilityPatch, validate func(model.Availability) error) (model.Availability, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return model.Availability{}, fmt.Errorf("storage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanAvailability(tx.QueryRow(ctx, `SELECT `+availabilityColumns+` FROM availability WHERE id = 1 FOR UPDATE`))
	if err != nil {
		if IsNotFound(err) {
			return model.Availability{}, model.Errorf(model.KindNotFound, "availability is not configured")
		}
		return model.Availability{}, fmt.Errorf("storage: lock availability: %w", err)
	}
	merged := p.Apply(current)
	if err := validate(merged); err != nil {
		return model.Availability{}, err
	}

	out, err := scanAvailability(tx.QueryRow(ctx, `
		UPDATE availability
		SET start_time = $1, end_time = $2, timezone = $3, slot_duration = $4, buffer_between_slots = $5, updated_at = now()
		WHERE id = 1
		RETURNING `+availabilityColumns,
		merged.StartTime, merged.EndTime, merged.Timezone, merged.SlotDuration, merged.BufferBetweenSlots))
	if err != nil {
		return model.Availability{}, fmt.Errorf("storage: patch availability: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Availability{}, fmt.Errorf("storage: commit: %w", err)
	}
	return out, nil
}

const appointmentColumns = `id::text, title, description, start_time_utc, end_time_utc, status, meeting_link,
	confirmation_sent, one_hour_reminder_sent, client_email, client_timezone, created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var status string
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.StartTimeUTC,
		&a.EndTimeUTC,
		&status,
		&a.MeetingLink,
		&a.RemindersSent.Confirmation,
		&a.RemindersSent.OneHourBefore,
		&a.ClientEmail,
		&a.ClientTimezone,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.Status(status)
	a.StartTimeUTC = a.StartTimeUTC.UTC()
	a.EndTimeUTC = a.EndTimeUTC.UTC()
	return a, nil
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	appts := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func appointmentNotFound(id string) error {
	return model.Errorf(model.KindNotFound, "appointment %s not found", id)
}

func (s *Postgres) ListActiveBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status <> 'cancelled'
			AND start_time_utc < $2
			AND end_time_utc > $1
		ORDER BY start_time_utc ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("storage: list active appointments: %w", err)
	}
	appts, err := collectAppointments(rows)
	if err != nil {
		return nil, fmt.Errorf("storage: scan appointments: %w", err)
	}
	return appts, nil
}

func (s *Postgres) ListAppointments(ctx context.Context) ([]model.Appointment, error) {
	rows, err := s.db.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY start_time_utc ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list appointments: %w", err)
	}
	appts, err := collectAppointments(rows)
	if err != nil {
		return nil, fmt.Errorf("storage: scan appointments: %w", err)
	}
	return appts, nil
}

func (s *Postgres) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(s.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return model.Appointment{}, appointmentNotFound(id)
		}
		return model.Appointment{}, fmt.Errorf("storage: get appointment: %w", err)
	}
	return a, nil
}

// CreateAppointment inserts appt and its booked event in one transaction.
func (s *Postgres) CreateAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("storage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := scanAppointment(tx.QueryRow(ctx, `
		INSERT INTO appointments
			(title, description, start_time_utc, end_time_utc, status, meeting_link,
			 confirmation_sent, one_hour_reminder_sent, client_email, client_timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+appointmentColumns,
		appt.Title, appt.Description, appt.StartTimeUTC, appt.EndTimeUTC, string(appt.Status), appt.MeetingLink,
		appt.RemindersSent.Confirmation, appt.RemindersSent.OneHourBefore, appt.ClientEmail, appt.ClientTimezone))
	if err != nil {
		if IsConflict(err) {
			return model.Appointment{}, model.Errorf(model.KindSlotAlreadyBooked, "time slot is already booked")
		}
		return model.Appointment{}, fmt.Errorf("storage: insert appointment: %w", err)
	}

	if err := s.emit(ctx, tx, outbox.EventAppointmentBooked, created); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, fmt.Errorf("storage: commit: %w", err)
	}
	return created, nil
}

func (s *Postgres) UpdateAppointment(ctx context.Context, id string, upd model.AppointmentUpdate) (model.Appointment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("storage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanAppointment(tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if IsNotFound(err) {
			return model.Appointment{}, appointmentNotFound(id)
		}
		return model.Appointment{}, fmt.Errorf("storage: lock appointment: %w", err)
	}
	next := upd.Apply(current)

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2, confirmation_sent = $3, one_hour_reminder_sent = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, string(next.Status), next.RemindersSent.Confirmation, next.RemindersSent.OneHourBefore))
	if err != nil {
		if IsConflict(err) {
			return model.Appointment{}, model.Errorf(model.KindSlotAlreadyBooked, "appointment overlaps another active appointment")
		}
		return model.Appointment{}, fmt.Errorf("storage: update appointment: %w", err)
	}

	if err := s.emit(ctx, tx, outbox.EventAppointmentUpdated, updated); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, fmt.Errorf("storage: commit: %w", err)
	}
	return updated, nil
}

func (s *Postgres) DeleteAppointment(ctx context.Context, id string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deleted, err := scanAppointment(tx.QueryRow(ctx, `DELETE FROM appointments WHERE id = $1 RETURNING `+appointmentColumns, id))
	if err != nil {
		if IsNotFound(err) {
			return appointmentNotFound(id)
		}
		return fmt.Errorf("storage: delete appointment: %w", err)
	}
	if err := s.emit(ctx, tx, outbox.EventAppointmentDeleted, deleted); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

func (s *Postgres) SetMeetingLink(ctx context.Context, id, link string) error {
	return s.touch(ctx, id, `UPDATE appointments SET meeting_link = $2, updated_at = now() WHERE id = $1`, link)
}

func (s *Postgres) MarkConfirmationSent(ctx context.Context, id string) error {
	return s.touch(ctx, id, `UPDATE appointments SET confirmation_sent = true, updated_at = now() WHERE id = $1`)
}

func (s *Postgres) MarkOneHourReminderSent(ctx context.Context, id string) error {
	return s.touch(ctx, id, `UPDATE appointments SET one_hour_reminder_sent = true, updated_at = now() WHERE id = $1`)
}

// ListDueReminders returns scheduled appointments starting in (from, to]
// that have not had their one-hour reminder.
func (s *Postgres) ListDueReminders(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'scheduled'
			AND one_hour_reminder_sent = false
			AND start_time_utc > $1
			AND start_time_utc <= $2
		ORDER BY start_time_utc ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("storage: list due reminders: %w", err)
	}
	appts, err := collectAppointments(rows)
	if err != nil {
		return nil, fmt.Errorf("storage: scan appointments: %w", err)
	}
	return appts, nil
}

func (s *Postgres) touch(ctx context.Context, id, sql string, args ...any) error {
	tag, err := s.db.Exec(ctx, sql, append([]any{id}, args...)...)
	if err != nil {
		if IsNotFound(err) {
			return appointmentNotFound(id)
		}
		return fmt.Errorf("storage: update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return appointmentNotFound(id)
	}
	return nil
}

func (s *Postgres) emit(ctx context.Context, tx pgx.Tx, eventType string, appt model.Appointment) error {
	evt, err := outbox.AppointmentEvent(eventType, appt, s.now())
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", eventType, err)
	}
	if err := s.outbox.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("storage: outbox insert: %w", err)
	}
	return nil
}
