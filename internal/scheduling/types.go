// Package scheduling implements provider availability computation, atomic
// slot reservation, and the appointment lifecycle state machine. It is the
// only writer of appointment rows; every create or move goes through
// ReservationStore so the partial unique index on (provider_id, scheduled_at)
// can arbitrate races.
package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the lifecycle state of a committed appointment.
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
)

// BookingOrigin records which path created the appointment.
type BookingOrigin string

const (
	OriginManual    BookingOrigin = "manual"
	OriginAutomated BookingOrigin = "automated"
)

// Provider is the subset of the provider record the scheduler needs.
type Provider struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Timezone string    `json:"timezone"` // IANA zone, e.g. "America/Chicago"
}

// TemplateEntry is one recurring weekly working window for a provider.
// Start/End are minutes from midnight in the provider's local zone.
type TemplateEntry struct {
	ID          uuid.UUID
	ProviderID  uuid.UUID
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	SlotMinutes int
	VisitType   string
	Active      bool
}

// Appointment is a committed reservation.
type Appointment struct {
	ID          uuid.UUID         `json:"id"`
	ProviderID  uuid.UUID         `json:"provider_id"`
	PatientID   uuid.UUID         `json:"patient_id"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	VisitType   string            `json:"visit_type"`
	Status      AppointmentStatus `json:"status"`
	Origin      BookingOrigin     `json:"origin"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Slot is an ephemeral bookable candidate. Slots are generated fresh on every
// availability query and never persisted; identity is (provider, timestamp).
type Slot struct {
	ProviderID uuid.UUID `json:"provider_id"`
	StartsAt   time.Time `json:"starts_at"`
	Minutes    int       `json:"minutes"`
	VisitType  string    `json:"visit_type"`
	Label      string    `json:"label"`
}

// FormatSlotLabel renders the patient-facing label for a slot time.
func FormatSlotLabel(t time.Time) string {
	return t.Format("Monday, Jan 2 at 3:04 PM")
}

// Clock supplies "now" so slot filtering stays deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the ambient system time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (e TemplateEntry) validate() error {
	if e.StartMinute >= e.EndMinute {
		return fmt.Errorf("scheduling: template entry %s: start %d not before end %d", e.ID, e.StartMinute, e.EndMinute)
	}
	if e.SlotMinutes <= 0 {
		return fmt.Errorf("scheduling: template entry %s: slot duration %d invalid", e.ID, e.SlotMinutes)
	}
	return nil
}
