package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/harborhealth/telecare-ai-platform/internal/intake"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// Enqueuer hands inbound messages to the intake queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg intake.InboundMessage) error
}

// WebhookHandler accepts inbound patient messages from channel providers.
// It validates and enqueues; all interpretation happens in the worker.
type WebhookHandler struct {
	publisher Enqueuer
	logger    *logging.Logger
}

func NewWebhookHandler(publisher Enqueuer, logger *logging.Logger) *WebhookHandler {
	if publisher == nil {
		panic("handlers: publisher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{publisher: publisher, logger: logger}
}

type inboundMessageRequest struct {
	Channel     string    `json:"channel"`
	MessageID   string    `json:"message_id"`
	ProviderID  uuid.UUID `json:"provider_id"`
	PatientID   uuid.UUID `json:"patient_id,omitempty"`
	PatientName string    `json:"patient_name,omitempty"`
	FromPhone   string    `json:"from_phone"`
	Body        string    `json:"body"`
}

// HandleInbound handles POST /webhooks/messages/inbound. Responds 202 once
// the message is queued; the channel provider retries on anything else.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	var req inboundMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProviderID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "provider_id is required")
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, "body is required")
		return
	}
	if req.PatientID == uuid.Nil && req.FromPhone == "" {
		writeError(w, http.StatusBadRequest, "patient_id or from_phone is required")
		return
	}
	if req.Channel == "" {
		req.Channel = "sms"
	}
	if req.MessageID == "" {
		req.MessageID = uuid.NewString()
	}

	msg := intake.InboundMessage{
		Channel:     req.Channel,
		MessageID:   req.MessageID,
		ProviderID:  req.ProviderID,
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		FromPhone:   req.FromPhone,
		Body:        req.Body,
		ReceivedAt:  time.Now().UTC(),
	}
	if err := h.publisher.Enqueue(r.Context(), msg); err != nil {
		h.logger.Error("failed to enqueue inbound message", "error", err, "message_id", msg.MessageID)
		writeError(w, http.StatusServiceUnavailable, "queue unavailable")
		return
	}

	h.logger.Info("inbound message queued",
		"channel", msg.Channel,
		"message_id", msg.MessageID,
		"provider_id", msg.ProviderID,
	)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":     "queued",
		"message_id": msg.MessageID,
	})
}
