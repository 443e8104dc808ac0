package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/timemath"
)

// Booker is implemented by *booking.Service.
type Booker interface {
	Book(ctx context.Context, req booking.BookRequest) (model.Appointment, error)
	Slots(ctx context.Context, date timemath.Date) (booking.SlotList, error)
}

type AppointmentStore interface {
	ListAppointments(ctx context.Context) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, upd model.AppointmentUpdate) (model.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
}

type AppointmentHandler struct {
	booker Booker
	store  AppointmentStore
	logger *slog.Logger
}

func NewAppointmentHandler(booker Booker, store AppointmentStore, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{booker: booker, store: store, logger: logger}
}

type createAppointmentRequest struct {
	StartTimeUTC     string `json:"startTimeUTC"`
	AppointmentTitle string `json:"appointmentTitle"`
	Description      string `json:"description"`
	ClientEmail      string `json:"clientEmail"`
	ClientTimezone   string `json:"clientTimezone"`
}

type remindersJSON struct {
	Confirmation  bool `json:"confirmation"`
	OneHourBefore bool `json:"oneHourBefore"`
}

type appointmentResponse struct {
	ID               string        `json:"id"`
	AppointmentTitle string        `json:"appointmentTitle"`
	Description      string        `json:"description"`
	StartTimeUTC     string        `json:"startTimeUTC"`
	EndTimeUTC       string        `json:"endTimeUTC"`
	Status           string        `json:"status"`
	MeetingLink      string        `json:"meetingLink"`
	RemindersSent    remindersJSON `json:"remindersSent"`
	ClientEmail      string        `json:"clientEmail"`
	ClientTimezone   string        `json:"clientTimezone"`
	CreatedAt        string        `json:"createdAt,omitempty"`
	UpdatedAt        string        `json:"updatedAt,omitempty"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:               a.ID,
		AppointmentTitle: a.Title,
		Description:      a.Description,
		StartTimeUTC:     formatTime(a.StartTimeUTC),
		EndTimeUTC:       formatTime(a.EndTimeUTC),
		Status:           string(a.Status),
		MeetingLink:      a.MeetingLink,
		RemindersSent: remindersJSON{
			Confirmation:  a.RemindersSent.Confirmation,
			OneHourBefore: a.RemindersSent.OneHourBefore,
		},
		ClientEmail:    a.ClientEmail,
		ClientTimezone: a.ClientTimezone,
		CreatedAt:      formatTime(a.CreatedAt),
		UpdatedAt:      formatTime(a.UpdatedAt),
	}
}

type updateAppointmentRequest struct {
	Status        *string `json:"status"`
	RemindersSent *struct {
		Confirmation  *bool `json:"confirmation"`
		OneHourBefore *bool `json:"oneHourBefore"`
	} `json:"remindersSent"`
}

func (req updateAppointmentRequest) update() (model.AppointmentUpdate, error) {
	var upd model.AppointmentUpdate
	if req.Status != nil {
		st, ok := model.ParseStatus(strings.TrimSpace(*req.Status))
		if !ok {
			return upd, model.Errorf(model.KindInvalidRequest, "status must be one of scheduled, completed, cancelled")
		}
		upd.Status = &st
	}
	if req.RemindersSent != nil {
		upd.Confirmation = req.RemindersSent.Confirmation
		upd.OneHourBefore = req.RemindersSent.OneHourBefore
	}
	if upd.Empty() {
		return upd, model.Errorf(model.KindInvalidRequest, "no valid fields to update")
	}
	return upd, nil
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	appt, err := h.booker.Book(r.Context(), booking.BookRequest{
		StartTimeUTC:     req.StartTimeUTC,
		AppointmentTitle: req.AppointmentTitle,
		Description:      req.Description,
		ClientEmail:      req.ClientEmail,
		ClientTimezone:   req.ClientTimezone,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	appts, err := h.store.ListAppointments(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentResponse(a))
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.store.GetAppointment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	upd, err := req.update()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	appt, err := h.store.UpdateAppointment(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("appointment updated", "appointment_id", appt.ID, "status", appt.Status)
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteAppointment(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("appointment deleted", "appointment_id", id)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "appointment deleted"})
}
