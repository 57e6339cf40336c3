package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/harborhealth/telecare-ai-platform/internal/intake"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

type stubEnqueuer struct {
	queued []intake.InboundMessage
	err    error
}

func (s *stubEnqueuer) Enqueue(_ context.Context, msg intake.InboundMessage) error {
	if s.err != nil {
		return s.err
	}
	s.queued = append(s.queued, msg)
	return nil
}

func postWebhook(t *testing.T, h *WebhookHandler, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/messages/inbound", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.HandleInbound(rec, req)
	return rec
}

func newWebhookHandler(pub Enqueuer) *WebhookHandler {
	return NewWebhookHandler(pub, logging.NewWithWriter("error", io.Discard))
}

func TestHandleInboundQueuesMessage(t *testing.T) {
	pub := &stubEnqueuer{}
	h := newWebhookHandler(pub)

	rec := postWebhook(t, h, inboundMessageRequest{
		MessageID:  "msg-1",
		ProviderID: uuid.New(),
		FromPhone:  "+15551234567",
		Body:       "can I book monday 9am?",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(pub.queued) != 1 {
		t.Fatalf("queued = %d, want 1", len(pub.queued))
	}
	msg := pub.queued[0]
	if msg.Channel != "sms" {
		t.Errorf("channel defaulted to %q, want sms", msg.Channel)
	}
	if msg.ReceivedAt.IsZero() {
		t.Error("received_at not stamped")
	}
}

func TestHandleInboundGeneratesMessageID(t *testing.T) {
	pub := &stubEnqueuer{}
	h := newWebhookHandler(pub)

	rec := postWebhook(t, h, inboundMessageRequest{
		ProviderID: uuid.New(),
		FromPhone:  "+15551234567",
		Body:       "hello",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if pub.queued[0].MessageID == "" {
		t.Error("message id not generated")
	}
}

func TestHandleInboundValidation(t *testing.T) {
	h := newWebhookHandler(&stubEnqueuer{})

	cases := []inboundMessageRequest{
		{FromPhone: "+15551234567", Body: "hi"},        // no provider
		{ProviderID: uuid.New(), FromPhone: "+1555"},   // no body
		{ProviderID: uuid.New(), Body: "hi"},           // no patient id or phone
	}
	for i, c := range cases {
		rec := postWebhook(t, h, c)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400", i, rec.Code)
		}
	}
}

func TestHandleInboundQueueFailure(t *testing.T) {
	h := newWebhookHandler(&stubEnqueuer{err: errors.New("queue down")})

	rec := postWebhook(t, h, inboundMessageRequest{
		ProviderID: uuid.New(),
		FromPhone:  "+15551234567",
		Body:       "hi",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
