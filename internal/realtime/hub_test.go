package realtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/harborhealth/telecare-ai-platform/internal/events"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(logging.NewWithWriter("error", io.Discard))
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, err := websocket.Dial(url, "", srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", hub.SubscriberCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func appointmentEntry(t *testing.T, providerID uuid.UUID) events.OutboxEntry {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"provider_id": providerID.String()})
	if err != nil {
		t.Fatal(err)
	}
	return events.OutboxEntry{
		ID:        uuid.New(),
		Type:      "appointment.created",
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

func receiveFrame(t *testing.T, conn *websocket.Conn) EventFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame EventFrame
	if err := websocket.JSON.Receive(conn, &frame); err != nil {
		t.Fatalf("receive: %v", err)
	}
	return frame
}

func TestHubBroadcastsAppointmentEvents(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "")
	waitForSubscribers(t, hub, 1)

	entry := appointmentEntry(t, uuid.New())
	if err := hub.Handle(context.Background(), entry); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	frame := receiveFrame(t, conn)
	if frame.ID != entry.ID || frame.Type != "appointment.created" {
		t.Errorf("frame = %+v, want event %s", frame, entry.ID)
	}
}

func TestHubFiltersByProvider(t *testing.T) {
	hub, srv := newTestHub(t)
	mine := uuid.New()
	other := uuid.New()
	conn := dial(t, srv, "?provider="+mine.String())
	waitForSubscribers(t, hub, 1)

	if err := hub.Handle(context.Background(), appointmentEntry(t, other)); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	wanted := appointmentEntry(t, mine)
	if err := hub.Handle(context.Background(), wanted); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	frame := receiveFrame(t, conn)
	if frame.ID != wanted.ID {
		t.Errorf("received %s, want only the filtered provider's event %s", frame.ID, wanted.ID)
	}
}

func TestHubDeliversReschedulesToFilteredSubscribers(t *testing.T) {
	hub, srv := newTestHub(t)
	mine := uuid.New()
	conn := dial(t, srv, "?provider="+mine.String())
	waitForSubscribers(t, hub, 1)

	payload, err := json.Marshal(map[string]any{
		"provider_id": mine.String(),
		"previous":    map[string]any{"provider_id": mine.String(), "status": "cancelled"},
		"current":     map[string]any{"provider_id": mine.String(), "status": "scheduled"},
	})
	if err != nil {
		t.Fatal(err)
	}
	entry := events.OutboxEntry{
		ID:        uuid.New(),
		Type:      "appointment.rescheduled",
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := hub.Handle(context.Background(), entry); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	frame := receiveFrame(t, conn)
	if frame.ID != entry.ID || frame.Type != "appointment.rescheduled" {
		t.Errorf("frame = %+v, want reschedule %s", frame, entry.ID)
	}
}

func TestHubIgnoresNonAppointmentEvents(t *testing.T) {
	hub, srv := newTestHub(t)
	dial(t, srv, "")
	waitForSubscribers(t, hub, 1)

	err := hub.Handle(context.Background(), events.OutboxEntry{
		ID:      uuid.New(),
		Type:    "message.received",
		Payload: []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
}

func TestHubRejectsBadProviderParam(t *testing.T) {
	hub, srv := newTestHub(t)
	_ = hub

	resp, err := http.Get(srv.URL + "?provider=not-a-uuid")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHubDropsDisconnectedSubscribers(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "")
	waitForSubscribers(t, hub, 1)

	_ = conn.Close()
	waitForSubscribers(t, hub, 0)
}
