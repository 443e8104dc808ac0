package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/storage"
)

func newMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemory()
	svc := booking.NewService(booking.Deps{
		Availability: store,
		Appointments: store,
		Now:          func() time.Time { return time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC) },
		Logger:       logger,
	})
	mux := http.NewServeMux()
	Routes{
		Availability: NewAvailabilityHandler(store, logger),
		Slots:        NewSlotsHandler(svc, logger),
		Appointments: NewAppointmentHandler(svc, store, logger),
	}.Register(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec.Code, out
}

const nyConfig = `{"startTime":"09:00","endTime":"17:00","timezone":"America/New_York"}`

func configure(t *testing.T, mux http.Handler) {
	t.Helper()
	if code, body := do(t, mux, http.MethodPost, "/api/v1/availability", nyConfig); code != http.StatusOK {
		t.Fatalf("configure: status %d body %v", code, body)
	}
}

func TestAvailabilityNotConfigured(t *testing.T) {
	mux := newMux(t)
	code, body := do(t, mux, http.MethodGet, "/api/v1/availability", "")
	if code != http.StatusNotFound || body["errorKind"] != "NotFound" {
		t.Fatalf("got %d %v", code, body)
	}
}

func TestAvailabilityUpsertDefaultsAndAlias(t *testing.T) {
	mux := newMux(t)
	code, body := do(t, mux, http.MethodPost, "/api/v1/availability",
		`{"startTime":"08:00","endTime":"12:00","admintimezone":"Asia/Kathmandu"}`)
	if code != http.StatusOK {
		t.Fatalf("status %d body %v", code, body)
	}
	if body["timezone"] != "Asia/Kathmandu" || body["slotDuration"] != float64(20) || body["bufferBetweenSlots"] != float64(10) {
		t.Fatalf("unexpected body: %v", body)
	}

	code, body = do(t, mux, http.MethodPost, "/api/v1/availability",
		`{"startTime":"08:00","endTime":"12:00","timezone":"Asia/Kathmandu","bufferBetweenSlots":0}`)
	if code != http.StatusOK || body["bufferBetweenSlots"] != float64(0) {
		t.Fatalf("explicit zero buffer: %d %v", code, body)
	}
}

func TestAvailabilityRejectsInvalid(t *testing.T) {
	mux := newMux(t)
	cases := map[string]string{
		"bad json":     `{"startTime":`,
		"bad clock":    `{"startTime":"9:00","endTime":"17:00","timezone":"UTC"}`,
		"bad zone":     `{"startTime":"09:00","endTime":"17:00","timezone":"Mars/Olympus"}`,
		"end <= start": `{"startTime":"17:00","endTime":"09:00","timezone":"UTC"}`,
	}
	for name, body := range cases {
		code, resp := do(t, mux, http.MethodPost, "/api/v1/availability", body)
		if code != http.StatusBadRequest || resp["errorKind"] == "" {
			t.Fatalf("%s: got %d %v", name, code, resp)
		}
	}
}

func TestAvailabilityPatch(t *testing.T) {
	mux := newMux(t)
	configure(t, mux)

	code, body := do(t, mux, http.MethodPatch, "/api/v1/availability", `{}`)
	if code != http.StatusBadRequest || body["errorKind"] != "InvalidRequest" {
		t.Fatalf("empty patch: %d %v", code, body)
	}

	code, body = do(t, mux, http.MethodPatch, "/api/v1/availability", `{"slotDuration":30}`)
	if code != http.StatusOK || body["slotDuration"] != float64(30) || body["startTime"] != "09:00" {
		t.Fatalf("patch: %d %v", code, body)
	}

	code, body = do(t, mux, http.MethodPatch, "/api/v1/availability", `{"endTime":"08:00"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("merged config should be rejected: %d %v", code, body)
	}
}

func TestSlots(t *testing.T) {
	mux := newMux(t)
	configure(t, mux)

	code, body := do(t, mux, http.MethodGet, "/api/v1/slots", "")
	if code != http.StatusBadRequest || body["errorKind"] != "InvalidRequest" {
		t.Fatalf("missing date: %d %v", code, body)
	}
	code, body = do(t, mux, http.MethodGet, "/api/v1/slots?date=15-01-2030", "")
	if code != http.StatusBadRequest || body["errorKind"] != "InvalidTimeFormat" {
		t.Fatalf("bad date: %d %v", code, body)
	}

	code, body = do(t, mux, http.MethodGet, "/api/v1/slots?date=2030-01-15", "")
	if code != http.StatusOK {
		t.Fatalf("status %d body %v", code, body)
	}
	times, _ := body["timeSlots"].([]any)
	if len(times) != 16 || times[0] != "14:00" || times[15] != "21:30" {
		t.Fatalf("unexpected timeSlots: %v", times)
	}
	slots, _ := body["slots"].([]any)
	first, _ := slots[0].(map[string]any)
	if first["start"] != "2030-01-15T14:00:00Z" || first["end"] != "2030-01-15T14:20:00Z" {
		t.Fatalf("unexpected first slot: %v", first)
	}
}

func bookBody(start string) string {
	return `{"startTimeUTC":"` + start + `","appointmentTitle":"Intro call","clientEmail":"ada@example.com","clientTimezone":"Europe/London"}`
}

func TestBookAndConflict(t *testing.T) {
	mux := newMux(t)
	configure(t, mux)

	code, body := do(t, mux, http.MethodPost, "/api/v1/appointments", bookBody("2030-01-15T14:30:00Z"))
	if code != http.StatusCreated {
		t.Fatalf("book: %d %v", code, body)
	}
	if body["status"] != "scheduled" || body["endTimeUTC"] != "2030-01-15T14:50:00Z" || body["id"] == "" {
		t.Fatalf("unexpected appointment: %v", body)
	}

	code, body = do(t, mux, http.MethodPost, "/api/v1/appointments", bookBody("2030-01-15T09:30:00-05:00"))
	if code != http.StatusConflict || body["errorKind"] != "SlotAlreadyBooked" {
		t.Fatalf("conflict: %d %v", code, body)
	}

	_, body = do(t, mux, http.MethodGet, "/api/v1/slots?date=2030-01-15", "")
	if times, _ := body["timeSlots"].([]any); len(times) != 15 {
		t.Fatalf("booked slot still listed: %v", times)
	}
}

func TestBookMisalignedSuggestsNextSlot(t *testing.T) {
	mux := newMux(t)
	configure(t, mux)

	code, body := do(t, mux, http.MethodPost, "/api/v1/appointments", bookBody("2030-01-15T14:15:00Z"))
	if code != http.StatusBadRequest || body["errorKind"] != "InvalidSlotAlignment" {
		t.Fatalf("got %d %v", code, body)
	}
	if body["nextAvailableSlot"] != "2030-01-15T14:30:00Z" {
		t.Fatalf("nextAvailableSlot = %v", body["nextAvailableSlot"])
	}

	code, body = do(t, mux, http.MethodPost, "/api/v1/appointments", bookBody("not-a-time"))
	if code != http.StatusBadRequest || body["errorKind"] != "InvalidTimeFormat" {
		t.Fatalf("bad time: %d %v", code, body)
	}
	if _, ok := body["nextAvailableSlot"]; ok {
		t.Fatalf("nextAvailableSlot should be omitted: %v", body)
	}
}

func TestAppointmentLifecycle(t *testing.T) {
	mux := newMux(t)
	configure(t, mux)

	_, created := do(t, mux, http.MethodPost, "/api/v1/appointments", bookBody("2030-01-15T15:00:00Z"))
	id, _ := created["id"].(string)
	path := "/api/v1/appointments/" + id

	code, body := do(t, mux, http.MethodGet, path, "")
	if code != http.StatusOK || body["appointmentTitle"] != "Intro call" {
		t.Fatalf("get: %d %v", code, body)
	}

	code, body = do(t, mux, http.MethodPut, path, `{"status":"postponed"}`)
	if code != http.StatusBadRequest || body["errorKind"] != "InvalidRequest" {
		t.Fatalf("bad status: %d %v", code, body)
	}

	code, body = do(t, mux, http.MethodPut, path, `{"status":"cancelled","remindersSent":{"confirmation":true}}`)
	if code != http.StatusOK || body["status"] != "cancelled" {
		t.Fatalf("cancel: %d %v", code, body)
	}
	reminders, _ := body["remindersSent"].(map[string]any)
	if reminders["confirmation"] != true || reminders["oneHourBefore"] != false {
		t.Fatalf("reminders: %v", reminders)
	}

	_, body = do(t, mux, http.MethodGet, "/api/v1/slots?date=2030-01-15", "")
	if times, _ := body["timeSlots"].([]any); len(times) != 16 {
		t.Fatalf("cancelled slot should be free again: %v", times)
	}

	code, body = do(t, mux, http.MethodDelete, path, "")
	if code != http.StatusOK || body["message"] == "" {
		t.Fatalf("delete: %d %v", code, body)
	}
	code, body = do(t, mux, http.MethodGet, path, "")
	if code != http.StatusNotFound || body["errorKind"] != "NotFound" {
		t.Fatalf("get after delete: %d %v", code, body)
	}
}

func TestListAppointments(t *testing.T) {
	mux := newMux(t)
	configure(t, mux)
	do(t, mux, http.MethodPost, "/api/v1/appointments", bookBody("2030-01-15T16:00:00Z"))
	do(t, mux, http.MethodPost, "/api/v1/appointments", bookBody("2030-01-15T14:00:00Z"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	var items []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[0]["startTimeUTC"] != "2030-01-15T14:00:00Z" {
		t.Fatalf("unexpected list: %v", items)
	}
}
