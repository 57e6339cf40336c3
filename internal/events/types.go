// Package events persists appointment domain events to a transactional
// outbox and delivers them to observers (realtime dashboard, audit log).
// Delivery is fire-and-forget: observers being down never blocks or rolls
// back a booking.
package events

// Appointment event types written by the scheduling package.
const (
	TypeAppointmentCreated     = "appointment.created"
	TypeAppointmentStarted     = "appointment.started"
	TypeAppointmentCompleted   = "appointment.completed"
	TypeAppointmentCancelled   = "appointment.cancelled"
	TypeAppointmentRescheduled = "appointment.rescheduled"
)
