package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

type stubMessenger struct {
	calls int
	err   error
}

func (s *stubMessenger) Send(_ context.Context, _ OutboundSMS) error {
	s.calls++
	return s.err
}

func TestBuildMessengerAutoWithBothProviders(t *testing.T) {
	messenger, provider, reason := BuildMessenger(ProviderSelectionConfig{
		TelnyxAPIKey:     "key",
		TelnyxProfileID:  "profile",
		TwilioAccountSID: "sid",
		TwilioAuthToken:  "token",
		TwilioFromNumber: "+15550001111",
	}, logging.Default())

	if messenger == nil {
		t.Fatalf("expected messenger, got nil (reason: %s)", reason)
	}
	if provider != "telnyx+twilio" {
		t.Fatalf("expected failover provider, got %q", provider)
	}
	if _, ok := messenger.(*FailoverMessenger); !ok {
		t.Fatalf("expected FailoverMessenger, got %T", messenger)
	}
}

func TestBuildMessengerForcedProviderWithoutCredentials(t *testing.T) {
	messenger, _, reason := BuildMessenger(ProviderSelectionConfig{
		Preference:       SMSProviderTelnyx,
		TwilioAccountSID: "sid",
		TwilioAuthToken:  "token",
	}, logging.Default())

	if messenger != nil {
		t.Fatalf("expected nil messenger when forced provider lacks credentials")
	}
	if !strings.Contains(reason, "TELNYX_API_KEY") {
		t.Fatalf("expected missing-credential reason, got %q", reason)
	}
}

func TestBuildMessengerNothingConfigured(t *testing.T) {
	messenger, provider, reason := BuildMessenger(ProviderSelectionConfig{}, logging.Default())
	if messenger != nil || provider != "" {
		t.Fatalf("expected no messenger, got %v (%s)", messenger, provider)
	}
	if reason == "" {
		t.Fatal("expected a reason when nothing is configured")
	}
}

func TestFailoverUsesSecondaryOnPrimaryError(t *testing.T) {
	primary := &stubMessenger{err: errors.New("carrier down")}
	secondary := &stubMessenger{}
	fo := NewFailoverMessenger(primary, "telnyx", secondary, "twilio", logging.Default())

	err := fo.Send(context.Background(), OutboundSMS{To: "+15550002222", From: "+15550001111", Body: "hi"})
	if err != nil {
		t.Fatalf("expected fallback to succeed: %v", err)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("expected one call each, got primary=%d secondary=%d", primary.calls, secondary.calls)
	}
}

func TestFailoverSkipsSecondaryOnSuccess(t *testing.T) {
	primary := &stubMessenger{}
	secondary := &stubMessenger{}
	fo := NewFailoverMessenger(primary, "telnyx", secondary, "twilio", logging.Default())

	if err := fo.Send(context.Background(), OutboundSMS{To: "+15550002222", From: "+15550001111", Body: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary should not be used, got %d calls", secondary.calls)
	}
}

func TestTelnyxSenderPostsMessagePayload(t *testing.T) {
	var got map[string]interface{}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewTelnyxSender("tk-123", "profile-9", logging.Default())
	sender.baseURL = srv.URL

	err := sender.Send(context.Background(), OutboundSMS{
		To:   "+15550002222",
		From: "+15550001111",
		Body: "your visit is confirmed",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if auth != "Bearer tk-123" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if got["to"] != "+15550002222" || got["text"] != "your visit is confirmed" {
		t.Fatalf("unexpected payload: %v", got)
	}
	if got["messaging_profile_id"] != "profile-9" {
		t.Fatalf("expected messaging profile in payload, got %v", got)
	}
}

func TestTwilioSenderDoesNotRetryClientErrors(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code": 21211, "message": "invalid 'To' number"}`))
	}))
	defer srv.Close()

	sender := NewTwilioSender("sid", "token", "+15550001111", logging.Default())
	sender.baseURL = srv.URL

	err := sender.Send(context.Background(), OutboundSMS{To: "bad", Body: "hi"})
	if err == nil {
		t.Fatal("expected error on 400 response")
	}
	if !strings.Contains(err.Error(), "21211") {
		t.Fatalf("expected carrier error code in message, got %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected single attempt for 400, got %d", requests)
	}
}

func TestTelnyxSenderValidatesInput(t *testing.T) {
	sender := NewTelnyxSender("tk-123", "", logging.Default())
	if err := sender.Send(context.Background(), OutboundSMS{From: "+15550001111", Body: "hi"}); err == nil {
		t.Fatal("expected error for missing recipient")
	}
	if err := sender.Send(context.Background(), OutboundSMS{To: "+15550002222", From: "+15550001111"}); err == nil {
		t.Fatal("expected error for empty body")
	}
}
