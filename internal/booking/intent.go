package booking

import (
	"context"
	"time"

	"github.com/harborhealth/telecare-ai-platform/internal/scheduling"
)

// IntentRequest is what the parser sees: the patient's message plus the
// candidate slot labels the patient could be referring to. Candidates are
// indexed so the parser can answer with a position instead of re-deriving
// a timestamp from free text.
type IntentRequest struct {
	MessageText string
	Candidates  []string
}

// BookingIntent is the parsed interpretation of a patient message. It is
// advisory only: the orchestrator re-verifies any matched slot through the
// reservation path before committing anything.
type BookingIntent struct {
	// MatchedSlotIndex is the position in IntentRequest.Candidates the
	// patient asked for, or -1 when no candidate matched.
	MatchedSlotIndex int
	// RequestedTime is set when the message names a time that is not one
	// of the candidates.
	RequestedTime *time.Time
	VisitType     string
	// Confidence in [0,1]. Low confidence routes to a human.
	Confidence float64
	// NeedsHuman is set when the message is out of scope for automated
	// booking (medical questions, complaints, ambiguity).
	NeedsHuman bool
	Reason     string
}

// IntentParser extracts a BookingIntent from a patient message.
type IntentParser interface {
	ParseBookingIntent(ctx context.Context, req IntentRequest) (*BookingIntent, error)
}

// OutcomeCode classifies how a booking attempt ended.
type OutcomeCode string

const (
	OutcomeBooked     OutcomeCode = "booked"
	OutcomeSlotTaken  OutcomeCode = "slot_taken"
	OutcomeNeedsHuman OutcomeCode = "needs_human"
)

// Outcome is the structured result of a booking attempt. Recoverable
// failures (lost races, parser timeouts) surface here instead of as errors
// so callers can message the patient appropriately.
type Outcome struct {
	Code        OutcomeCode
	Message     string
	Appointment *scheduling.Appointment
	// Alternatives is populated on slot_taken outcomes so the patient can
	// be offered other times in the same reply.
	Alternatives []scheduling.Slot
}
