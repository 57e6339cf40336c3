// Package realtime pushes appointment events to connected schedule
// dashboards over WebSocket. The hub is one observer on the outbox fan-out;
// a dashboard that misses events reloads state over the REST API, so
// delivery here is best-effort.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/harborhealth/telecare-ai-platform/internal/events"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// EventFrame is what subscribers receive for each appointment event.
type EventFrame struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type subscriber struct {
	conn       *websocket.Conn
	providerID uuid.UUID // uuid.Nil subscribes to all providers
	send       chan EventFrame
	done       chan struct{}
}

// Hub tracks connected dashboards and broadcasts appointment events.
type Hub struct {
	logger *logging.Logger

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// HandleWebSocket upgrades the request and streams events until the client
// disconnects. An optional ?provider query parameter narrows the stream to a
// single provider's schedule.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	providerID := uuid.Nil
	if raw := r.URL.Query().Get("provider"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid provider id", http.StatusBadRequest)
			return
		}
		providerID = id
	}

	websocket.Handler(func(conn *websocket.Conn) {
		h.serve(conn, providerID)
	}).ServeHTTP(w, r)
}

func (h *Hub) serve(conn *websocket.Conn, providerID uuid.UUID) {
	sub := &subscriber{
		conn:       conn,
		providerID: providerID,
		send:       make(chan EventFrame, 16),
		done:       make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.logger.Debug("dashboard connected", "provider_filter", providerID, "subscribers", n)

	defer func() {
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
		close(sub.done)
		_ = conn.Close()
	}()

	// Reader goroutine: we never expect client frames, but reading detects
	// disconnects.
	go func() {
		var discard string
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				select {
				case sub.send <- EventFrame{}: // wake the writer
				case <-sub.done:
				}
				return
			}
		}
	}()

	for frame := range sub.send {
		if frame.Type == "" {
			return
		}
		if err := websocket.JSON.Send(conn, frame); err != nil {
			h.logger.Debug("dashboard write failed, dropping connection", "error", err)
			return
		}
	}
}

// Handle broadcasts appointment events to subscribers. Slow subscribers are
// skipped rather than retried; the hub never fails outbox delivery.
func (h *Hub) Handle(ctx context.Context, entry events.OutboxEntry) error {
	if !strings.HasPrefix(entry.Type, "appointment.") {
		return nil
	}

	var payload struct {
		ProviderID uuid.UUID `json:"provider_id"`
	}
	_ = json.Unmarshal(entry.Payload, &payload)

	frame := EventFrame{
		ID:         entry.ID,
		Type:       entry.Type,
		Payload:    entry.Payload,
		OccurredAt: entry.CreatedAt,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.providerID != uuid.Nil && sub.providerID != payload.ProviderID {
			continue
		}
		select {
		case sub.send <- frame:
		default:
			h.logger.Warn("dashboard subscriber lagging, event skipped", "event_id", entry.ID)
		}
	}
	return nil
}

// SubscriberCount reports connected dashboards, for health reporting.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var _ events.DeliveryHandler = (*Hub)(nil)
