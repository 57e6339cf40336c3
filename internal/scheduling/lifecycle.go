package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

var lifecycleTracer = otel.Tracer("telecare.internal.scheduling.lifecycle")

// Lifecycle applies appointment state transitions. Any transition that moves
// the scheduled time goes through the reservation path first, so at no point
// does an appointment exist without a live reservation.
type Lifecycle struct {
	db           txBeginner
	reservations *ReservationStore
	events       EventRecorder
	logger       *logging.Logger
}

// NewLifecycle constructs the controller. reservations must share the same
// database as db so Reschedule can run both steps in one transaction.
func NewLifecycle(db txBeginner, reservations *ReservationStore, events EventRecorder, logger *logging.Logger) *Lifecycle {
	if db == nil {
		panic("scheduling: db required")
	}
	if reservations == nil {
		panic("scheduling: reservation store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Lifecycle{db: db, reservations: reservations, events: events, logger: logger}
}

// Start moves a scheduled appointment to in_progress.
func (l *Lifecycle) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.transition(ctx, id, []AppointmentStatus{StatusScheduled}, StatusInProgress, "appointment.started")
}

// Complete moves an in_progress appointment to completed. Completing an
// already-completed appointment is a no-op success.
func (l *Lifecycle) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.transition(ctx, id, []AppointmentStatus{StatusInProgress}, StatusCompleted, "appointment.completed")
}

// Cancel releases the appointment's slot. The calculator excludes cancelled
// rows, so the timestamp becomes bookable again immediately.
func (l *Lifecycle) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.transition(ctx, id, []AppointmentStatus{StatusScheduled, StatusInProgress}, StatusCancelled, "appointment.cancelled")
}

// Reschedule moves a scheduled appointment to a new timestamp. The new
// reservation is inserted before the original row is released, inside one
// transaction; losing the race for the new slot returns ErrSlotTaken and
// leaves the original reservation untouched. Target times already in the
// past return ErrPastSlot.
func (l *Lifecycle) Reschedule(ctx context.Context, id uuid.UUID, newTime time.Time) (*Appointment, error) {
	ctx, span := lifecycleTracer.Start(ctx, "scheduling.reschedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("telecare.appointment_id", id.String()),
		attribute.String("telecare.new_time", newTime.Format(time.RFC3339)),
	)

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduling: begin reschedule: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := lockAppointment(ctx, tx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if current.Status != StatusScheduled {
		return nil, fmt.Errorf("%w: cannot reschedule from %s", ErrInvalidTransition, current.Status)
	}
	if current.ScheduledAt.Equal(newTime) {
		// Retried request with the same target time.
		return current, nil
	}
	if newTime.Before(time.Now()) {
		return nil, ErrPastSlot
	}

	// Reserve first. The partial unique index arbitrates the new slot while
	// the old reservation still stands.
	replacement, err := l.reservations.insertScheduled(ctx, tx, current.ProviderID, current.PatientID, newTime, current.VisitType, current.Origin)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	release := `
		UPDATE appointments
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status = 'scheduled'
	`
	ct, err := tx.Exec(ctx, release, current.ID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: release prior reservation: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return nil, fmt.Errorf("scheduling: prior reservation changed under lock for %s", current.ID)
	}

	if l.events != nil {
		// Top-level provider_id keeps the payload attributable for outbox
		// consumers that don't know the nested reschedule shape.
		payload := map[string]any{
			"provider_id": current.ProviderID,
			"previous":    current,
			"current":     replacement,
		}
		if _, err := l.events.InsertTx(ctx, tx, "appointment.rescheduled", payload); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("scheduling: commit reschedule: %w", err)
	}

	l.logger.Info("appointment rescheduled",
		"appointment_id", current.ID,
		"replacement_id", replacement.ID,
		"provider_id", current.ProviderID,
		"from", current.ScheduledAt,
		"to", newTime,
	)
	return replacement, nil
}

func (l *Lifecycle) transition(ctx context.Context, id uuid.UUID, from []AppointmentStatus, to AppointmentStatus, eventType string) (*Appointment, error) {
	ctx, span := lifecycleTracer.Start(ctx, "scheduling.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("telecare.appointment_id", id.String()),
		attribute.String("telecare.target_status", string(to)),
	)

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduling: begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fromStrings := make([]string, len(from))
	for i, s := range from {
		fromStrings[i] = string(s)
	}

	update := `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)
		RETURNING id, provider_id, patient_id, scheduled_at, visit_type, status, origin, created_at, updated_at
	`
	appt, err := scanAppointmentRow(tx.QueryRow(ctx, update, id, string(to), fromStrings))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("scheduling: apply transition: %w", err)
		}

		// Guarded update matched nothing: distinguish missing, retried, and
		// genuinely invalid.
		current, lookupErr := lockAppointment(ctx, tx, id)
		if lookupErr != nil {
			span.RecordError(lookupErr)
			return nil, lookupErr
		}
		if current.Status == to {
			return current, nil
		}
		err = fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
		span.RecordError(err)
		return nil, err
	}

	if l.events != nil {
		if _, err := l.events.InsertTx(ctx, tx, eventType, appt); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("scheduling: commit transition: %w", err)
	}

	l.logger.Info("appointment transition applied",
		"appointment_id", appt.ID,
		"status", appt.Status,
	)
	return appt, nil
}

func lockAppointment(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Appointment, error) {
	query := `
		SELECT id, provider_id, patient_id, scheduled_at, visit_type, status, origin, created_at, updated_at
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`
	appt, err := scanAppointmentRow(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("scheduling: lock appointment: %w", err)
	}
	return appt, nil
}

func scanAppointmentRow(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(
		&a.ID,
		&a.ProviderID,
		&a.PatientID,
		&a.ScheduledAt,
		&a.VisitType,
		&a.Status,
		&a.Origin,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
