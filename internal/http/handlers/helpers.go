// Package handlers exposes the scheduling REST surface: availability
// queries, manual booking, lifecycle transitions, and the inbound message
// webhook.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harborhealth/telecare-ai-platform/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeSchedulingError maps domain errors onto HTTP statuses.
func writeSchedulingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider not found")
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, scheduling.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot no longer available")
	case errors.Is(err, scheduling.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid status transition")
	case errors.Is(err, scheduling.ErrPastSlot):
		writeError(w, http.StatusBadRequest, "requested time is in the past")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
