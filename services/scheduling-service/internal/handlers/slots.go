package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/timemath"
)

type SlotsHandler struct {
	booker Booker
	logger *slog.Logger
}

func NewSlotsHandler(booker Booker, logger *slog.Logger) *SlotsHandler {
	return &SlotsHandler{booker: booker, logger: logger}
}

type slotItem struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type slotsResponse struct {
	Date      string     `json:"date"`
	Timezone  string     `json:"timezone"`
	TimeSlots []string   `json:"timeSlots"`
	Slots     []slotItem `json:"slots"`
}

// List serves GET /slots?date=YYYY-MM-DD. Booked slots are left out.
func (h *SlotsHandler) List(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		writeError(w, r, h.logger, model.Errorf(model.KindInvalidRequest, "date query parameter is required (YYYY-MM-DD)"))
		return
	}
	date, err := timemath.ParseDate(raw)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	list, err := h.booker.Slots(r.Context(), date)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resp := slotsResponse{
		Date:      list.Date.String(),
		Timezone:  list.Timezone,
		TimeSlots: list.TimeSlots(),
		Slots:     make([]slotItem, 0, len(list.Slots)),
	}
	for _, s := range list.Slots {
		resp.Slots = append(resp.Slots, slotItem{Start: formatTime(s.Start), End: formatTime(s.End)})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
