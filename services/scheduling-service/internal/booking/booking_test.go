package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/timemath"
)

var (
	cfg = model.Availability{
		StartTime:          "09:00",
		EndTime:            "17:00",
		Timezone:           "America/New_York",
		SlotDuration:       20,
		BufferBetweenSlots: 10,
	}
	day   = timemath.Date{Year: 2030, Month: time.January, Day: 15}
	fixed = time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// utc builds an instant on day from a New York wall clock (EST, UTC-5).
func utc(hour, minute int) time.Time {
	return time.Date(2030, time.January, 15, hour+5, minute, 0, 0, time.UTC)
}

func validator() *Validator {
	return NewValidator(func() time.Time { return fixed })
}

type queue struct {
	mu   sync.Mutex
	got  []model.Appointment
	full bool
}

func (q *queue) Submit(appt model.Appointment) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.got = append(q.got, appt)
	return true
}

func newService(t *testing.T) (*Service, *storage.Memory, *queue) {
	t.Helper()
	store := storage.NewMemory()
	if _, err := store.UpsertAvailability(context.Background(), cfg); err != nil {
		t.Fatalf("UpsertAvailability: %v", err)
	}
	q := &queue{}
	svc := NewService(Deps{
		Availability: store,
		Appointments: store,
		Followup:     q,
		Now:          func() time.Time { return fixed },
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return svc, store, q
}

func request(start time.Time) BookRequest {
	return BookRequest{
		StartTimeUTC:   start.Format(time.RFC3339),
		ClientEmail:    "client@example.com",
		ClientTimezone: "Asia/Kathmandu",
	}
}

func TestGeneratedSlotsPassValidation(t *testing.T) {
	slots, err := availability.Slots(cfg, day, nil)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	v := validator()
	for _, s := range slots {
		p, err := v.Precheck(cfg, s)
		if err != nil {
			t.Fatalf("slot %s rejected: %v", s, err)
		}
		if p.Reached != GridChecked {
			t.Fatalf("slot %s stopped at %s", s, p.Reached)
		}
	}
}

func TestBoundary(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		want  error
	}{
		{"last slot ends at close", utc(16, 40), nil},
		{"one minute later spills over", utc(16, 41), model.ErrOutsideWorkingHours},
		{"before opening", utc(8, 30), model.ErrOutsideWorkingHours},
	}
	// 16:40 is only on the grid when the step divides 460 minutes.
	boundaryCfg := cfg
	boundaryCfg.BufferBetweenSlots = 0
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator().Validate(boundaryCfg, tc.start, nil)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected accept, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestOutsideWorkingHoursNamesConfig(t *testing.T) {
	_, err := validator().Validate(cfg, utc(17, 0), nil)
	var e *model.Error
	if !errors.As(err, &e) || e.Kind != model.KindOutsideWorkingHours {
		t.Fatalf("expected OutsideWorkingHours, got %v", err)
	}
	if e.Message != "appointment must be within working hours (09:00 to 17:00 America/New_York)" {
		t.Fatalf("unexpected message %q", e.Message)
	}
}

func TestMisalignedStartSuggestsNextSlot(t *testing.T) {
	p, err := validator().Validate(cfg, utc(9, 15), nil)
	var e *model.Error
	if !errors.As(err, &e) || e.Kind != model.KindInvalidSlotAlignment {
		t.Fatalf("expected InvalidSlotAlignment, got %v", err)
	}
	if e.NextAvailableSlot == nil || !e.NextAvailableSlot.Equal(utc(9, 30)) {
		t.Fatalf("expected next slot %s, got %v", utc(9, 30), e.NextAvailableSlot)
	}
	if p.State != Rejected || p.Reached != BoundsChecked {
		t.Fatalf("unexpected pass state %s/%s", p.State, p.Reached)
	}
}

func TestMisalignedWithoutRoomHasNoSuggestion(t *testing.T) {
	// 16:31 fits before close, but the next grid start (17:00) does not.
	_, err := validator().Validate(cfg, utc(16, 31), nil)
	var e *model.Error
	if !errors.As(err, &e) || e.Kind != model.KindInvalidSlotAlignment {
		t.Fatalf("expected InvalidSlotAlignment, got %v", err)
	}
	if e.NextAvailableSlot != nil {
		t.Fatalf("expected no suggestion, got %s", e.NextAvailableSlot)
	}
}

func TestPastAppointment(t *testing.T) {
	for _, start := range []time.Time{fixed, fixed.Add(-time.Minute), fixed.AddDate(-10, 0, 0)} {
		_, err := validator().Validate(cfg, start, nil)
		if !errors.Is(err, model.ErrPastAppointment) {
			t.Fatalf("start %s: expected PastAppointment, got %v", start, err)
		}
	}
}

func TestValidateConflict(t *testing.T) {
	existing := []availability.Interval{{Start: utc(9, 0), End: utc(9, 20)}}
	p, err := validator().Validate(cfg, utc(9, 0), existing)
	if !errors.Is(err, model.ErrSlotAlreadyBooked) {
		t.Fatalf("expected SlotAlreadyBooked, got %v", err)
	}
	if p.Reached != GridChecked {
		t.Fatalf("expected rejection after grid check, got %s", p.Reached)
	}

	p, err = validator().Validate(cfg, utc(9, 30), existing)
	if err != nil || p.State != Accepted {
		t.Fatalf("expected accept, got %v (%s)", err, p.State)
	}
	appt := p.Appointment(BookRequest{ClientEmail: "c@example.com"})
	if appt.Title != model.DefaultAppointmentTitle || !appt.EndTimeUTC.Equal(utc(9, 50)) || appt.Status != model.StatusScheduled {
		t.Fatalf("unexpected appointment %+v", appt)
	}
}

func TestBookThenSameSlotFromAnotherTimezone(t *testing.T) {
	svc, _, q := newService(t)
	ctx := context.Background()

	created, err := svc.Book(ctx, request(utc(9, 0)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if created.ID == "" || created.MeetingLink != "" || created.RemindersSent.Confirmation {
		t.Fatalf("unexpected appointment %+v", created)
	}
	if len(q.got) != 1 {
		t.Fatalf("expected follow-up to be queued")
	}

	again := request(utc(9, 0))
	again.ClientTimezone = "Europe/Berlin"
	again.StartTimeUTC = utc(9, 0).In(time.FixedZone("CET", 3600)).Format(time.RFC3339)
	if _, err := svc.Book(ctx, again); !errors.Is(err, model.ErrSlotAlreadyBooked) {
		t.Fatalf("expected SlotAlreadyBooked, got %v", err)
	}
}

func TestBookSurvivesFullFollowupQueue(t *testing.T) {
	svc, _, q := newService(t)
	q.full = true
	if _, err := svc.Book(context.Background(), request(utc(10, 0))); err != nil {
		t.Fatalf("booking must not depend on follow-up: %v", err)
	}
}

func TestBookRequestValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	bad := request(utc(9, 0))
	bad.StartTimeUTC = "tomorrow at nine"
	if _, err := svc.Book(ctx, bad); !errors.Is(err, model.ErrInvalidTimeFormat) {
		t.Fatalf("expected InvalidTimeFormat, got %v", err)
	}

	bad = request(utc(9, 0))
	bad.ClientEmail = "not-an-email"
	if _, err := svc.Book(ctx, bad); !errors.Is(err, model.ErrInvalidRequest) {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}

	bad = request(utc(9, 0))
	bad.ClientTimezone = "Somewhere/Else"
	if _, err := svc.Book(ctx, bad); !errors.Is(err, model.ErrInvalidRequest) {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}
}

func TestBookWithoutConfig(t *testing.T) {
	store := storage.NewMemory()
	svc := NewService(Deps{Availability: store, Appointments: store, Now: func() time.Time { return fixed },
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if _, err := svc.Book(context.Background(), request(utc(9, 0))); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestConcurrentBookingsOneWinner(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	const attempts = 25
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(ctx, request(utc(11, 0)))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, model.ErrSlotAlreadyBooked):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one booking, got %d", wins)
	}

	active, _ := store.ListActiveBetween(ctx, utc(9, 0), utc(17, 0))
	for i := range active {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			if a.StartTimeUTC.Before(b.EndTimeUTC) && b.StartTimeUTC.Before(a.EndTimeUTC) {
				t.Fatalf("overlapping appointments %s and %s", a.ID, b.ID)
			}
		}
	}
}

func TestSlotsSkipBookedButKeepGrid(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	list, err := svc.Slots(ctx, day)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(list.Slots) != 16 || list.Timezone != "America/New_York" {
		t.Fatalf("expected 16 slots in America/New_York, got %d %s", len(list.Slots), list.Timezone)
	}
	if ts := list.TimeSlots(); ts[0] != "14:00" || ts[1] != "14:30" {
		t.Fatalf("unexpected UTC labels %v", ts[:2])
	}

	booked, err := svc.Book(ctx, request(utc(9, 30)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	list, _ = svc.Slots(ctx, day)
	if len(list.Slots) != 15 {
		t.Fatalf("expected 15 slots after booking, got %d", len(list.Slots))
	}

	cancelled := model.StatusCancelled
	if _, err := store.UpdateAppointment(ctx, booked.ID, model.AppointmentUpdate{Status: &cancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	list, _ = svc.Slots(ctx, day)
	if len(list.Slots) != 16 {
		t.Fatalf("cancelled booking must free its slot, got %d", len(list.Slots))
	}
}
