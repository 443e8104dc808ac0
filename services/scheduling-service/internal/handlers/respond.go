package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/scheduling-service/internal/model"
)

type errorResponse struct {
	ErrorKind         string `json:"errorKind"`
	Message           string `json:"message"`
	NextAvailableSlot string `json:"nextAvailableSlot,omitempty"`
}

func statusFor(kind model.Kind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindSlotAlreadyBooked:
		return http.StatusConflict
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeError renders a rejection. Errors without a kind are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var e *model.Error
	if !errors.As(err, &e) {
		logger.ErrorContext(r.Context(), "request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"err", err,
		)
		httpx.WriteJSON(w, http.StatusInternalServerError, errorResponse{ErrorKind: "Internal", Message: "internal error"})
		return
	}
	resp := errorResponse{ErrorKind: string(e.Kind), Message: e.Message}
	if e.NextAvailableSlot != nil {
		resp.NextAvailableSlot = e.NextAvailableSlot.UTC().Format(time.RFC3339)
	}
	httpx.WriteJSON(w, statusFor(e.Kind), resp)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Errorf(model.KindInvalidRequest, "request body is required")
		}
		return model.Errorf(model.KindInvalidRequest, "invalid json body")
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
