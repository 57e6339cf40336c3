package notify

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/harborhealth/telecare-ai-platform/internal/scheduling"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

type mockResolver struct {
	contact *Contact
	err     error
}

func (m *mockResolver) GetContact(_ context.Context, _ uuid.UUID) (*Contact, error) {
	return m.contact, m.err
}

type mockSMSSender struct {
	sent []struct{ to, body string }
	err  error
}

func (m *mockSMSSender) SendSMS(_ context.Context, to, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, struct{ to, body string }{to, body})
	return nil
}

type mockEmailSender struct {
	sent []EmailMessage
	err  error
}

func (m *mockEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func testAppointment() *scheduling.Appointment {
	return &scheduling.Appointment{
		ID:          uuid.New(),
		ProviderID:  uuid.New(),
		PatientID:   uuid.New(),
		ScheduledAt: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Status:      scheduling.StatusScheduled,
	}
}

func newTestService(resolver ContactResolver, sms SMSSender, email EmailSender) *Service {
	return NewService(resolver, sms, email, logging.NewWithWriter("error", io.Discard))
}

func TestSendConfirmationPrefersSMS(t *testing.T) {
	sms := &mockSMSSender{}
	email := &mockEmailSender{}
	svc := newTestService(&mockResolver{contact: &Contact{Phone: "+15551234567", Email: "pat@example.com"}}, sms, email)

	if err := svc.SendConfirmation(context.Background(), uuid.New(), testAppointment()); err != nil {
		t.Fatalf("SendConfirmation returned error: %v", err)
	}
	if len(sms.sent) != 1 {
		t.Fatalf("SMS sent = %d, want 1", len(sms.sent))
	}
	if len(email.sent) != 0 {
		t.Errorf("email sent despite SMS success")
	}
	if !strings.Contains(sms.sent[0].body, "Monday, Mar 2 at 9:30 AM") {
		t.Errorf("confirmation body missing slot label: %q", sms.sent[0].body)
	}
}

func TestDeliverFallsBackToEmail(t *testing.T) {
	sms := &mockSMSSender{err: errors.New("carrier rejected")}
	email := &mockEmailSender{}
	svc := newTestService(&mockResolver{contact: &Contact{Name: "Pat", Phone: "+15551234567", Email: "pat@example.com"}}, sms, email)

	if err := svc.SendConfirmation(context.Background(), uuid.New(), testAppointment()); err != nil {
		t.Fatalf("SendConfirmation returned error: %v", err)
	}
	if len(email.sent) != 1 {
		t.Fatalf("email sent = %d, want 1 after SMS failure", len(email.sent))
	}
	if email.sent[0].To != "pat@example.com" {
		t.Errorf("email to = %q", email.sent[0].To)
	}
}

func TestDeliverNoChannelIsError(t *testing.T) {
	svc := newTestService(&mockResolver{contact: &Contact{Name: "Pat"}}, &mockSMSSender{}, &mockEmailSender{})

	err := svc.SendConfirmation(context.Background(), uuid.New(), testAppointment())
	if err == nil {
		t.Fatal("expected error when patient has no phone or email")
	}
}

func TestSendAlternativesNumbersSlots(t *testing.T) {
	sms := &mockSMSSender{}
	svc := newTestService(&mockResolver{contact: &Contact{Phone: "+15551234567"}}, sms, nil)

	slots := []scheduling.Slot{
		{Label: "Monday, Mar 2 at 9:00 AM"},
		{Label: "Monday, Mar 2 at 9:30 AM"},
	}
	if err := svc.SendAlternatives(context.Background(), uuid.New(), slots); err != nil {
		t.Fatalf("SendAlternatives returned error: %v", err)
	}
	body := sms.sent[0].body
	for _, want := range []string{"1. Monday, Mar 2 at 9:00 AM", "2. Monday, Mar 2 at 9:30 AM", "Reply with a number"} {
		if !strings.Contains(body, want) {
			t.Errorf("alternatives body missing %q:\n%s", want, body)
		}
	}
}

func TestSendHandoffUnknownContact(t *testing.T) {
	svc := newTestService(&mockResolver{err: ErrContactNotFound}, &mockSMSSender{}, nil)

	err := svc.SendHandoff(context.Background(), uuid.New(), "ambiguous request")
	if !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("error = %v, want ErrContactNotFound", err)
	}
}
