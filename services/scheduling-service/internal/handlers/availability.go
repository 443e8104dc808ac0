package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

type AvailabilityStore interface {
	GetAvailability(ctx context.Context) (model.Availability, error)
	UpsertAvailability(ctx context.Context, a model.Availability) (model.Availability, error)
	PatchAvailability(ctx context.Context, p model.AvailabilityPatch, validate func(model.Availability) error) (model.Availability, error)
}

type AvailabilityHandler struct {
	store  AvailabilityStore
	logger *slog.Logger
}

func NewAvailabilityHandler(store AvailabilityStore, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{store: store, logger: logger}
}

// availabilityRequest accepts "admintimezone" as an alias for "timezone".
type availabilityRequest struct {
	StartTime          *string `json:"startTime"`
	EndTime            *string `json:"endTime"`
	Timezone           *string `json:"timezone"`
	AdminTimezone      *string `json:"admintimezone"`
	SlotDuration       *int    `json:"slotDuration"`
	BufferBetweenSlots *int    `json:"bufferBetweenSlots"`
}

func (r availabilityRequest) timezone() *string {
	if r.Timezone != nil {
		return r.Timezone
	}
	return r.AdminTimezone
}

type availabilityResponse struct {
	StartTime          string `json:"startTime"`
	EndTime            string `json:"endTime"`
	Timezone           string `json:"timezone"`
	SlotDuration       int    `json:"slotDuration"`
	BufferBetweenSlots int    `json:"bufferBetweenSlots"`
	CreatedAt          string `json:"createdAt,omitempty"`
	UpdatedAt          string `json:"updatedAt,omitempty"`
}

func toAvailabilityResponse(a model.Availability) availabilityResponse {
	return availabilityResponse{
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		Timezone:           a.Timezone,
		SlotDuration:       a.SlotDuration,
		BufferBetweenSlots: a.BufferBetweenSlots,
		CreatedAt:          formatTime(a.CreatedAt),
		UpdatedAt:          formatTime(a.UpdatedAt),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.GetAvailability(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAvailabilityResponse(a))
}

// Upsert replaces the configuration. Omitted durations take their defaults.
func (h *AvailabilityHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	cfg := model.AvailabilityInput{
		StartTime:          deref(req.StartTime),
		EndTime:            deref(req.EndTime),
		Timezone:           deref(req.timezone()),
		SlotDuration:       req.SlotDuration,
		BufferBetweenSlots: req.BufferBetweenSlots,
	}.Availability()
	if err := availability.Validate(cfg); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	saved, err := h.store.UpsertAvailability(r.Context(), cfg)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("availability updated", "start_time", saved.StartTime, "end_time", saved.EndTime, "timezone", saved.Timezone)
	httpx.WriteJSON(w, http.StatusOK, toAvailabilityResponse(saved))
}

func (h *AvailabilityHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	patch := model.AvailabilityPatch{
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		Timezone:           req.timezone(),
		SlotDuration:       req.SlotDuration,
		BufferBetweenSlots: req.BufferBetweenSlots,
	}
	if patch.Empty() {
		writeError(w, r, h.logger, model.Errorf(model.KindInvalidRequest, "no valid fields to update"))
		return
	}

	saved, err := h.store.PatchAvailability(r.Context(), patch, availability.Validate)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAvailabilityResponse(saved))
}
