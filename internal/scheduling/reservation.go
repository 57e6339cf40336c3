package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

var reservationTracer = otel.Tracer("telecare.internal.scheduling.reservation")

const pgForeignKeyViolation = "23503"

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// EventRecorder appends a domain event inside the reservation transaction so
// the event commits or rolls back with the appointment row. Delivery to
// observers happens later and never affects the reservation.
type EventRecorder interface {
	InsertTx(ctx context.Context, tx pgx.Tx, eventType string, payload any) (uuid.UUID, error)
}

// ReservationStore is the single writer of new appointment rows. The
// uniqueness check and the insert are one statement: a partial unique index
// on (provider_id, scheduled_at) WHERE status <> 'cancelled' plus
// INSERT ... ON CONFLICT DO NOTHING. Losing the race surfaces as
// ErrSlotTaken, never as a half-written row.
type ReservationStore struct {
	db     txBeginner
	events EventRecorder
	logger *logging.Logger
}

// NewReservationStore creates the store over a pgx pool.
func NewReservationStore(pool *pgxpool.Pool, events EventRecorder, logger *logging.Logger) *ReservationStore {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return newReservationStoreWithDB(pool, events, logger)
}

func newReservationStoreWithDB(db txBeginner, events EventRecorder, logger *logging.Logger) *ReservationStore {
	if db == nil {
		panic("scheduling: db required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReservationStore{db: db, events: events, logger: logger}
}

// Reserve atomically creates a scheduled appointment at the given timestamp.
// Timestamps already in the past are rejected with ErrPastSlot before any
// database work. Returns ErrSlotTaken when a non-cancelled appointment
// already holds the (provider, timestamp) pair, and ErrProviderNotFound when
// the provider row is missing.
func (s *ReservationStore) Reserve(ctx context.Context, providerID, patientID uuid.UUID, ts time.Time, visitType string, origin BookingOrigin) (*Appointment, error) {
	if ts.Before(time.Now()) {
		return nil, ErrPastSlot
	}

	ctx, span := reservationTracer.Start(ctx, "scheduling.reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("telecare.provider_id", providerID.String()),
		attribute.String("telecare.scheduled_at", ts.Format(time.RFC3339)),
		attribute.String("telecare.origin", string(origin)),
	)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduling: begin reserve: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.insertScheduled(ctx, tx, providerID, patientID, ts, visitType, origin)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.events != nil {
		if _, err := s.events.InsertTx(ctx, tx, "appointment.created", appt); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("scheduling: commit reserve: %w", err)
	}

	s.logger.Info("slot reserved",
		"appointment_id", appt.ID,
		"provider_id", providerID,
		"scheduled_at", ts,
		"origin", origin,
	)
	return appt, nil
}

// insertScheduled runs the atomic insert-or-fail inside tx. Reschedule reuses
// it so the new reservation exists before the old row is released.
func (s *ReservationStore) insertScheduled(ctx context.Context, tx pgx.Tx, providerID, patientID uuid.UUID, ts time.Time, visitType string, origin BookingOrigin) (*Appointment, error) {
	id := uuid.New()
	query := `
		INSERT INTO appointments (id, provider_id, patient_id, scheduled_at, visit_type, status, origin)
		VALUES ($1, $2, $3, $4, $5, 'scheduled', $6)
		ON CONFLICT (provider_id, scheduled_at) WHERE status <> 'cancelled' DO NOTHING
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	err := tx.QueryRow(ctx, query, id, providerID, patientID, ts, visitType, origin).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// ON CONFLICT DO NOTHING returned no row: another caller holds
			// the slot.
			return nil, ErrSlotTaken
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("scheduling: insert appointment: %w", err)
	}

	return &Appointment{
		ID:          id,
		ProviderID:  providerID,
		PatientID:   patientID,
		ScheduledAt: ts,
		VisitType:   visitType,
		Status:      StatusScheduled,
		Origin:      origin,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
