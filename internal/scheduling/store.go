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
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides read access to providers, availability templates, and
// committed appointments. All mutation goes through ReservationStore and
// Lifecycle.
type Store struct {
	db querier
}

// NewStore creates a store backed by a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return &Store{db: pool}
}

func newStoreWithQuerier(q querier) *Store {
	if q == nil {
		panic("scheduling: querier required")
	}
	return &Store{db: q}
}

// GetProvider loads a provider row.
func (s *Store) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	query := `
		SELECT id, name, timezone
		FROM providers
		WHERE id = $1
	`
	var p Provider
	if err := s.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Timezone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("scheduling: load provider: %w", err)
	}
	return &p, nil
}

// ListActiveEntries returns the active weekly template entries for a provider.
func (s *Store) ListActiveEntries(ctx context.Context, providerID uuid.UUID) ([]TemplateEntry, error) {
	query := `
		SELECT id, provider_id, weekday, start_minute, end_minute, slot_minutes, visit_type, active
		FROM availability_templates
		WHERE provider_id = $1 AND active
		ORDER BY weekday, start_minute
	`
	rows, err := s.db.Query(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list template entries: %w", err)
	}
	defer rows.Close()

	var entries []TemplateEntry
	for rows.Next() {
		var e TemplateEntry
		var weekday int
		if err := rows.Scan(&e.ID, &e.ProviderID, &weekday, &e.StartMinute, &e.EndMinute, &e.SlotMinutes, &e.VisitType, &e.Active); err != nil {
			return nil, fmt.Errorf("scheduling: scan template entry: %w", err)
		}
		e.Weekday = time.Weekday(weekday)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListBookedTimes returns the scheduled timestamps of non-cancelled
// appointments for a provider within [from, to). Cancelled rows are excluded
// so their slots become available again immediately.
func (s *Store) ListBookedTimes(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT scheduled_at
		FROM appointments
		WHERE provider_id = $1
		  AND scheduled_at >= $2 AND scheduled_at < $3
		  AND status <> 'cancelled'
		ORDER BY scheduled_at
	`
	rows, err := s.db.Query(ctx, query, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list booked times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scheduling: scan booked time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// IsSlotFree probes whether the exact (provider, timestamp) pair is free
// right now. The answer can go stale immediately; only Reserve is
// authoritative.
func (s *Store) IsSlotFree(ctx context.Context, providerID uuid.UUID, ts time.Time) (bool, error) {
	query := `
		SELECT 1
		FROM appointments
		WHERE provider_id = $1 AND scheduled_at = $2 AND status <> 'cancelled'
	`
	var one int
	if err := s.db.QueryRow(ctx, query, providerID, ts).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("scheduling: check slot: %w", err)
	}
	return false, nil
}

// GetAppointment loads a single appointment row.
func (s *Store) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `
		SELECT id, provider_id, patient_id, scheduled_at, visit_type, status, origin, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var a Appointment
	if err := s.db.QueryRow(ctx, query, id).Scan(
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("scheduling: load appointment: %w", err)
	}
	return &a, nil
}

// ListProviderAppointments returns the provider's appointments within
// [from, to) regardless of status, ordered by scheduled time.
func (s *Store) ListProviderAppointments(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	query := `
		SELECT id, provider_id, patient_id, scheduled_at, visit_type, status, origin, created_at, updated_at
		FROM appointments
		WHERE provider_id = $1
		  AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at
	`
	rows, err := s.db.Query(ctx, query, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list appointments: %w", err)
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
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
			return nil, fmt.Errorf("scheduling: scan appointment: %w", err)
		}
		appts = append(appts, &a)
	}
	return appts, rows.Err()
}
