// Package booking coordinates the two booking paths: staff-driven manual
// booking and message-driven automated booking. Both funnel through the same
// atomic reservation, so the orchestrator never trusts an availability read
// or a parsed intent; the database decides who wins a slot.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/harborhealth/telecare-ai-platform/internal/observability/metrics"
	"github.com/harborhealth/telecare-ai-platform/internal/scheduling"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

var tracer = otel.Tracer("telecare.internal.booking")

// Availability is the read side the orchestrator validates against.
// *scheduling.Calculator satisfies it.
type Availability interface {
	ComputeAvailableSlots(ctx context.Context, providerID uuid.UUID, lookaheadDays int) ([]scheduling.Slot, error)
}

// SlotReserver is the single write path for new appointments.
// *scheduling.ReservationStore satisfies it.
type SlotReserver interface {
	Reserve(ctx context.Context, providerID, patientID uuid.UUID, ts time.Time, visitType string, origin scheduling.BookingOrigin) (*scheduling.Appointment, error)
}

// Notifier delivers patient-facing follow-ups. Delivery failures are logged
// and never fail the booking; the appointment row is the source of truth.
type Notifier interface {
	SendConfirmation(ctx context.Context, patientID uuid.UUID, appt *scheduling.Appointment) error
	SendAlternatives(ctx context.Context, patientID uuid.UUID, slots []scheduling.Slot) error
	SendHandoff(ctx context.Context, patientID uuid.UUID, reason string) error
}

// ManualBookingRequest is a staff-initiated booking for a known slot.
type ManualBookingRequest struct {
	ProviderID  uuid.UUID
	PatientID   uuid.UUID
	ScheduledAt time.Time
	VisitType   string
}

// IntentBookingRequest is a patient message to interpret and, if possible,
// convert into a booking.
type IntentBookingRequest struct {
	ProviderID  uuid.UUID
	PatientID   uuid.UUID
	MessageText string
}

// Orchestrator runs both booking paths against the same reservation store.
type Orchestrator struct {
	availability Availability
	reserver     SlotReserver
	parser       IntentParser
	notifier     Notifier
	metrics      *metrics.BookingMetrics
	logger       *logging.Logger

	intentTimeout   time.Duration
	minConfidence   float64
	lookaheadDays   int
	maxAlternatives int
}

// NewOrchestrator wires the booking paths. availability, reserver and logger
// are required; parser and notifier may be nil when the automated path is
// disabled (BookFromIntent then degrades to needs_human).
func NewOrchestrator(availability Availability, reserver SlotReserver, parser IntentParser, notifier Notifier, m *metrics.BookingMetrics, logger *logging.Logger) *Orchestrator {
	if availability == nil {
		panic("booking: availability required")
	}
	if reserver == nil {
		panic("booking: reserver required")
	}
	if logger == nil {
		panic("booking: logger required")
	}
	return &Orchestrator{
		availability:    availability,
		reserver:        reserver,
		parser:          parser,
		notifier:        notifier,
		metrics:         m,
		logger:          logger,
		intentTimeout:   15 * time.Second,
		minConfidence:   0.6,
		lookaheadDays:   30,
		maxAlternatives: 3,
	}
}

// WithIntentTimeout bounds how long a single intent parse may take.
func (o *Orchestrator) WithIntentTimeout(d time.Duration) *Orchestrator {
	if d > 0 {
		o.intentTimeout = d
	}
	return o
}

// WithMinConfidence sets the confidence floor below which an intent is
// routed to a human.
func (o *Orchestrator) WithMinConfidence(c float64) *Orchestrator {
	if c > 0 {
		o.minConfidence = c
	}
	return o
}

// WithLookaheadDays sets the availability window used for candidate slots.
func (o *Orchestrator) WithLookaheadDays(days int) *Orchestrator {
	if days > 0 {
		o.lookaheadDays = days
	}
	return o
}

// BookManual validates the requested time against current availability and
// reserves it. A lost race comes back as a slot_taken outcome with
// alternative times, not an error.
func (o *Orchestrator) BookManual(ctx context.Context, req ManualBookingRequest) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "booking.BookManual", trace.WithAttributes(
		attribute.String("telecare.provider_id", req.ProviderID.String()),
		attribute.String("telecare.scheduled_at", req.ScheduledAt.Format(time.RFC3339)),
	))
	defer span.End()

	slots, err := o.availability.ComputeAvailableSlots(ctx, req.ProviderID, o.lookaheadDays)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: manual availability check: %w", err)
	}

	visitType := req.VisitType
	offered := false
	for _, s := range slots {
		if s.StartsAt.Equal(req.ScheduledAt) {
			offered = true
			if visitType == "" {
				visitType = s.VisitType
			}
			break
		}
	}
	if !offered {
		o.metrics.ObserveBooking(string(scheduling.OriginManual), string(OutcomeSlotTaken))
		return o.slotTakenOutcome(ctx, req.PatientID, slots, req.ScheduledAt), nil
	}

	appt, err := o.reserver.Reserve(ctx, req.ProviderID, req.PatientID, req.ScheduledAt, visitType, scheduling.OriginManual)
	if errors.Is(err, scheduling.ErrSlotTaken) {
		o.logger.Info("manual booking lost slot race",
			"provider_id", req.ProviderID,
			"scheduled_at", req.ScheduledAt)
		o.metrics.ObserveBooking(string(scheduling.OriginManual), string(OutcomeSlotTaken))
		return o.slotTakenOutcome(ctx, req.PatientID, slots, req.ScheduledAt), nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	o.metrics.ObserveBooking(string(scheduling.OriginManual), string(OutcomeBooked))
	o.confirm(ctx, req.PatientID, appt)
	return &Outcome{
		Code:        OutcomeBooked,
		Message:     fmt.Sprintf("Booked for %s.", scheduling.FormatSlotLabel(appt.ScheduledAt)),
		Appointment: appt,
	}, nil
}

// BookFromIntent interprets a patient message against current availability
// and books the matched slot. The parser is advisory; the reservation insert
// is what actually arbitrates the slot. Anything the parser cannot resolve
// confidently is handed to a human rather than guessed.
func (o *Orchestrator) BookFromIntent(ctx context.Context, req IntentBookingRequest) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "booking.BookFromIntent", trace.WithAttributes(
		attribute.String("telecare.provider_id", req.ProviderID.String()),
	))
	defer span.End()

	slots, err := o.availability.ComputeAvailableSlots(ctx, req.ProviderID, o.lookaheadDays)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: intent availability check: %w", err)
	}

	intent, err := o.parseIntent(ctx, req.MessageText, slots)
	if err != nil {
		if errors.Is(err, ErrIntentTimeout) || errors.Is(err, context.DeadlineExceeded) {
			o.logger.Warn("intent parse timed out, handing off", "provider_id", req.ProviderID)
			o.metrics.ObserveBooking(string(scheduling.OriginAutomated), string(OutcomeNeedsHuman))
			return o.handoffOutcome(ctx, req.PatientID, "intent parsing timed out"), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("booking: parse intent: %w", err)
	}

	if intent.NeedsHuman || intent.Confidence < o.minConfidence {
		o.metrics.ObserveBooking(string(scheduling.OriginAutomated), string(OutcomeNeedsHuman))
		reason := intent.Reason
		if reason == "" {
			reason = fmt.Sprintf("low confidence %.2f", intent.Confidence)
		}
		return o.handoffOutcome(ctx, req.PatientID, reason), nil
	}

	if intent.MatchedSlotIndex < 0 || intent.MatchedSlotIndex >= len(slots) {
		o.metrics.ObserveBooking(string(scheduling.OriginAutomated), string(OutcomeNeedsHuman))
		return o.handoffOutcome(ctx, req.PatientID, "no offered slot matched the request"), nil
	}

	slot := slots[intent.MatchedSlotIndex]
	visitType := intent.VisitType
	if visitType == "" {
		visitType = slot.VisitType
	}

	appt, err := o.reserver.Reserve(ctx, req.ProviderID, req.PatientID, slot.StartsAt, visitType, scheduling.OriginAutomated)
	if errors.Is(err, scheduling.ErrSlotTaken) {
		o.logger.Info("automated booking lost slot race",
			"provider_id", req.ProviderID,
			"scheduled_at", slot.StartsAt)
		o.metrics.ObserveBooking(string(scheduling.OriginAutomated), string(OutcomeSlotTaken))
		return o.slotTakenOutcome(ctx, req.PatientID, slots, slot.StartsAt), nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	o.metrics.ObserveBooking(string(scheduling.OriginAutomated), string(OutcomeBooked))
	o.confirm(ctx, req.PatientID, appt)
	return &Outcome{
		Code:        OutcomeBooked,
		Message:     fmt.Sprintf("You're booked for %s.", scheduling.FormatSlotLabel(appt.ScheduledAt)),
		Appointment: appt,
	}, nil
}

func (o *Orchestrator) parseIntent(ctx context.Context, message string, slots []scheduling.Slot) (*BookingIntent, error) {
	if o.parser == nil {
		return &BookingIntent{MatchedSlotIndex: -1, NeedsHuman: true, Reason: "automated booking disabled"}, nil
	}

	labels := make([]string, len(slots))
	for i, s := range slots {
		labels[i] = s.Label
	}

	ctx, cancel := context.WithTimeout(ctx, o.intentTimeout)
	defer cancel()

	start := time.Now()
	intent, err := o.parser.ParseBookingIntent(ctx, IntentRequest{MessageText: message, Candidates: labels})
	o.metrics.ObserveIntentLatency(time.Since(start).Seconds())
	return intent, err
}

// slotTakenOutcome builds the "that time is gone" reply, offering the next
// few open slots other than the one that was lost.
func (o *Orchestrator) slotTakenOutcome(ctx context.Context, patientID uuid.UUID, slots []scheduling.Slot, lost time.Time) *Outcome {
	alternatives := make([]scheduling.Slot, 0, o.maxAlternatives)
	for _, s := range slots {
		if s.StartsAt.Equal(lost) {
			continue
		}
		alternatives = append(alternatives, s)
		if len(alternatives) == o.maxAlternatives {
			break
		}
	}

	if o.notifier != nil && len(alternatives) > 0 {
		if err := o.notifier.SendAlternatives(ctx, patientID, alternatives); err != nil {
			o.logger.Error("failed to send alternative slots", "error", err, "patient_id", patientID)
		}
	}

	return &Outcome{
		Code:         OutcomeSlotTaken,
		Message:      "That time was just taken. Here are the next openings.",
		Alternatives: alternatives,
	}
}

func (o *Orchestrator) handoffOutcome(ctx context.Context, patientID uuid.UUID, reason string) *Outcome {
	if o.notifier != nil {
		if err := o.notifier.SendHandoff(ctx, patientID, reason); err != nil {
			o.logger.Error("failed to send handoff notice", "error", err, "patient_id", patientID)
		}
	}
	return &Outcome{
		Code:    OutcomeNeedsHuman,
		Message: "A member of our care team will follow up to get you scheduled.",
	}
}

func (o *Orchestrator) confirm(ctx context.Context, patientID uuid.UUID, appt *scheduling.Appointment) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.SendConfirmation(ctx, patientID, appt); err != nil {
		o.logger.Error("failed to send booking confirmation",
			"error", err,
			"appointment_id", appt.ID,
			"patient_id", patientID)
	}
}
