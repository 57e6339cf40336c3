// Package notify delivers patient-facing messages about appointments. SMS is
// the primary channel because bookings arrive over SMS; email is the
// fallback when a patient has no phone on file.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/harborhealth/telecare-ai-platform/internal/scheduling"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// Service sends booking confirmations, alternative-slot offers, and human
// handoff notices. It satisfies the booking orchestrator's Notifier
// dependency.
type Service struct {
	contacts ContactResolver
	sms      SMSSender
	email    EmailSender
	logger   *logging.Logger
}

// NewService creates a notification service. sms and email may each be nil;
// a send with no usable channel is an error the caller logs and absorbs.
func NewService(contacts ContactResolver, sms SMSSender, email EmailSender, logger *logging.Logger) *Service {
	if contacts == nil {
		panic("notify: contact resolver required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		contacts: contacts,
		sms:      sms,
		email:    email,
		logger:   logger,
	}
}

// SendConfirmation tells the patient their appointment is booked.
func (s *Service) SendConfirmation(ctx context.Context, patientID uuid.UUID, appt *scheduling.Appointment) error {
	body := fmt.Sprintf("You're confirmed for %s. Reply RESCHEDULE if you need a different time.",
		scheduling.FormatSlotLabel(appt.ScheduledAt))
	return s.deliver(ctx, patientID, "Appointment confirmed", body)
}

// SendAlternatives offers other open times after a slot was lost.
func (s *Service) SendAlternatives(ctx context.Context, patientID uuid.UUID, slots []scheduling.Slot) error {
	var b strings.Builder
	b.WriteString("That time was just taken. Here are the next openings:\n")
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s\n", i+1, slot.Label)
	}
	b.WriteString("Reply with a number to book.")
	return s.deliver(ctx, patientID, "That time was taken", b.String())
}

// SendHandoff tells the patient a person will follow up.
func (s *Service) SendHandoff(ctx context.Context, patientID uuid.UUID, reason string) error {
	s.logger.Info("handing conversation to care team", "patient_id", patientID, "reason", reason)
	body := "Thanks for reaching out. A member of our care team will follow up shortly to get you scheduled."
	return s.deliver(ctx, patientID, "We'll be in touch", body)
}

func (s *Service) deliver(ctx context.Context, patientID uuid.UUID, subject, body string) error {
	contact, err := s.contacts.GetContact(ctx, patientID)
	if err != nil {
		return err
	}

	if s.sms != nil && contact.Phone != "" {
		if err := s.sms.SendSMS(ctx, contact.Phone, body); err == nil {
			return nil
		} else {
			s.logger.Error("SMS send failed, trying email", "error", err, "patient_id", patientID)
		}
	}

	if s.email != nil && contact.Email != "" {
		return s.email.Send(ctx, EmailMessage{
			To:      contact.Email,
			ToName:  contact.Name,
			Subject: subject,
			Body:    body,
		})
	}

	return fmt.Errorf("notify: no reachable channel for patient %s", patientID)
}
