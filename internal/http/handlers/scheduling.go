package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborhealth/telecare-ai-platform/internal/booking"
	"github.com/harborhealth/telecare-ai-platform/internal/observability/metrics"
	"github.com/harborhealth/telecare-ai-platform/internal/scheduling"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// AvailabilityService answers slot queries.
type AvailabilityService interface {
	ComputeAvailableSlots(ctx context.Context, providerID uuid.UUID, lookaheadDays int) ([]scheduling.Slot, error)
}

// SlotProber answers exact-timestamp availability checks.
type SlotProber interface {
	IsSlotFree(ctx context.Context, providerID uuid.UUID, ts time.Time) (bool, error)
}

// ManualBooker runs the staff booking path.
type ManualBooker interface {
	BookManual(ctx context.Context, req booking.ManualBookingRequest) (*booking.Outcome, error)
}

// LifecycleService applies appointment status transitions.
type LifecycleService interface {
	Start(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newTime time.Time) (*scheduling.Appointment, error)
}

// SchedulingHandler serves the provider availability and appointment
// endpoints.
type SchedulingHandler struct {
	availability AvailabilityService
	prober       SlotProber
	booker       ManualBooker
	lifecycle    LifecycleService
	metrics      *metrics.BookingMetrics
	logger       *logging.Logger

	defaultLookaheadDays int
	maxLookaheadDays     int
}

func NewSchedulingHandler(availability AvailabilityService, prober SlotProber, booker ManualBooker, lifecycle LifecycleService, m *metrics.BookingMetrics, logger *logging.Logger) *SchedulingHandler {
	if availability == nil {
		panic("handlers: availability service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SchedulingHandler{
		availability:         availability,
		prober:               prober,
		booker:               booker,
		lifecycle:            lifecycle,
		metrics:              m,
		logger:               logger,
		defaultLookaheadDays: 30,
		maxLookaheadDays:     90,
	}
}

// WithLookaheadBounds overrides the default and maximum slot query windows.
func (h *SchedulingHandler) WithLookaheadBounds(def, max int) *SchedulingHandler {
	if def > 0 {
		h.defaultLookaheadDays = def
	}
	if max > 0 {
		h.maxLookaheadDays = max
	}
	return h
}

type slotsResponse struct {
	ProviderID string            `json:"provider_id"`
	Days       int               `json:"days"`
	Slots      []scheduling.Slot `json:"slots"`
}

// ListSlots handles GET /providers/{providerID}/slots?days=N.
func (h *SchedulingHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}

	days := h.defaultLookaheadDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}
	if days > h.maxLookaheadDays {
		days = h.maxLookaheadDays
	}

	start := time.Now()
	slots, err := h.availability.ComputeAvailableSlots(r.Context(), providerID, days)
	h.metrics.ObserveSlotQueryLatency(time.Since(start).Seconds())
	if err != nil {
		writeSchedulingError(w, err)
		return
	}
	if slots == nil {
		slots = []scheduling.Slot{}
	}

	writeJSON(w, http.StatusOK, slotsResponse{
		ProviderID: providerID.String(),
		Days:       days,
		Slots:      slots,
	})
}

type createAppointmentRequest struct {
	ProviderID  uuid.UUID `json:"provider_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	VisitType   string    `json:"visit_type"`
}

type bookingOutcomeResponse struct {
	Outcome      string                  `json:"outcome"`
	Message      string                  `json:"message,omitempty"`
	Appointment  *scheduling.Appointment `json:"appointment,omitempty"`
	Alternatives []scheduling.Slot       `json:"alternatives,omitempty"`
}

// CreateAppointment handles POST /appointments.
func (h *SchedulingHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	if h.booker == nil {
		writeError(w, http.StatusServiceUnavailable, "booking unavailable")
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProviderID == uuid.Nil || req.PatientID == uuid.Nil || req.ScheduledAt.IsZero() {
		writeError(w, http.StatusBadRequest, "provider_id, patient_id and scheduled_at are required")
		return
	}

	outcome, err := h.booker.BookManual(r.Context(), booking.ManualBookingRequest{
		ProviderID:  req.ProviderID,
		PatientID:   req.PatientID,
		ScheduledAt: req.ScheduledAt,
		VisitType:   req.VisitType,
	})
	if err != nil {
		writeSchedulingError(w, err)
		return
	}

	status := http.StatusCreated
	if outcome.Code == booking.OutcomeSlotTaken {
		status = http.StatusConflict
	}
	writeJSON(w, status, bookingOutcomeResponse{
		Outcome:      string(outcome.Code),
		Message:      outcome.Message,
		Appointment:  outcome.Appointment,
		Alternatives: outcome.Alternatives,
	})
}

type checkAvailabilityRequest struct {
	ProviderID  uuid.UUID `json:"provider_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type checkAvailabilityResponse struct {
	Available bool `json:"available"`
}

// CheckAvailability handles POST /appointments/check-availability. It is a
// point-in-time read; the reservation insert remains the arbiter.
func (h *SchedulingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	if h.prober == nil {
		writeError(w, http.StatusServiceUnavailable, "availability checks unavailable")
		return
	}

	var req checkAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProviderID == uuid.Nil || req.ScheduledAt.IsZero() {
		writeError(w, http.StatusBadRequest, "provider_id and scheduled_at are required")
		return
	}

	free, err := h.prober.IsSlotFree(r.Context(), req.ProviderID, req.ScheduledAt)
	if err != nil {
		writeSchedulingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkAvailabilityResponse{Available: free})
}

type updateAppointmentRequest struct {
	Action      string     `json:"action"` // start, complete, cancel, reschedule
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// UpdateAppointment handles PATCH /appointments/{id}.
func (h *SchedulingHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	if h.lifecycle == nil {
		writeError(w, http.StatusServiceUnavailable, "lifecycle unavailable")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	var req updateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var appt *scheduling.Appointment
	switch req.Action {
	case "start":
		appt, err = h.lifecycle.Start(r.Context(), id)
	case "complete":
		appt, err = h.lifecycle.Complete(r.Context(), id)
	case "cancel":
		appt, err = h.lifecycle.Cancel(r.Context(), id)
	case "reschedule":
		if req.ScheduledAt == nil {
			writeError(w, http.StatusBadRequest, "scheduled_at is required for reschedule")
			return
		}
		appt, err = h.lifecycle.Reschedule(r.Context(), id, *req.ScheduledAt)
	default:
		writeError(w, http.StatusBadRequest, "action must be one of start, complete, cancel, reschedule")
		return
	}

	if err != nil {
		h.metrics.ObserveTransition(req.Action, "error")
		writeSchedulingError(w, err)
		return
	}

	h.metrics.ObserveTransition(req.Action, "ok")
	writeJSON(w, http.StatusOK, appt)
}
