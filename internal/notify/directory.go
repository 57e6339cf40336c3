package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrContactNotFound indicates the patient has no contact record.
var ErrContactNotFound = errors.New("notify: patient contact not found")

// Contact is how a patient can be reached.
type Contact struct {
	PatientID uuid.UUID
	Name      string
	Phone     string
	Email     string
}

// ContactResolver looks up how to reach a patient.
type ContactResolver interface {
	GetContact(ctx context.Context, patientID uuid.UUID) (*Contact, error)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresDirectory resolves patient contacts from the patients table.
type PostgresDirectory struct {
	db rowQuerier
}

func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	if pool == nil {
		panic("notify: pgx pool required")
	}
	return &PostgresDirectory{db: pool}
}

func newPostgresDirectoryWithQuerier(q rowQuerier) *PostgresDirectory {
	return &PostgresDirectory{db: q}
}

// GetContact returns the contact record for a patient.
func (d *PostgresDirectory) GetContact(ctx context.Context, patientID uuid.UUID) (*Contact, error) {
	var c Contact
	err := d.db.QueryRow(ctx,
		`SELECT id, full_name, COALESCE(phone, ''), COALESCE(email, '')
		 FROM patients WHERE id = $1`,
		patientID,
	).Scan(&c.PatientID, &c.Name, &c.Phone, &c.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notify: get contact: %w", err)
	}
	return &c, nil
}

// UpsertContact records or refreshes a patient's contact details. The intake
// path calls this so a patient who texts in can be replied to later.
func (d *PostgresDirectory) UpsertContact(ctx context.Context, c Contact) error {
	_, err := d.db.Exec(ctx,
		`INSERT INTO patients (id, full_name, phone, email)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		 ON CONFLICT (id) DO UPDATE SET
		   full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), patients.full_name),
		   phone = COALESCE(EXCLUDED.phone, patients.phone),
		   email = COALESCE(EXCLUDED.email, patients.email),
		   updated_at = now()`,
		c.PatientID, c.Name, c.Phone, c.Email,
	)
	if err != nil {
		return fmt.Errorf("notify: upsert contact: %w", err)
	}
	return nil
}

var _ ContactResolver = (*PostgresDirectory)(nil)
