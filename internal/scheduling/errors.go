package scheduling

import "errors"

var (
	// ErrProviderNotFound is returned when the provider does not exist.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrAppointmentNotFound is returned when the appointment does not exist.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned when a reservation loses the race for a slot.
	// It is expected and recoverable: the caller should re-query availability.
	ErrSlotTaken = errors.New("slot already booked")

	// ErrInvalidTransition is returned when a lifecycle change is attempted
	// from an incompatible state.
	ErrInvalidTransition = errors.New("invalid appointment state transition")

	// ErrPastSlot is returned when a reservation or reschedule targets a
	// timestamp that has already passed.
	ErrPastSlot = errors.New("requested slot is in the past")
)
