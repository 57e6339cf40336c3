package cache

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/harborhealth/telecare-ai-platform/internal/events"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// Invalidator drops cached availability whenever an appointment event is
// delivered. It plugs into the outbox deliverer's fan-out.
type Invalidator struct {
	cache  *SlotCache
	logger *logging.Logger
}

func NewInvalidator(cache *SlotCache, logger *logging.Logger) *Invalidator {
	if cache == nil {
		panic("cache: slot cache required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Invalidator{cache: cache, logger: logger}
}

// Handle invalidates the provider named in any appointment.* event. Events
// it cannot attribute to a provider are acknowledged, not retried; the TTL
// bounds the staleness either way.
func (i *Invalidator) Handle(ctx context.Context, entry events.OutboxEntry) error {
	if !strings.HasPrefix(entry.Type, "appointment.") {
		return nil
	}
	var payload struct {
		ProviderID uuid.UUID `json:"provider_id"`
	}
	if err := json.Unmarshal(entry.Payload, &payload); err != nil || payload.ProviderID == uuid.Nil {
		i.logger.Warn("appointment event without provider id, skipping cache invalidation", "event_id", entry.ID, "type", entry.Type)
		return nil
	}
	if err := i.cache.InvalidateProvider(ctx, payload.ProviderID); err != nil {
		return err
	}
	i.logger.Debug("availability cache invalidated", "provider_id", payload.ProviderID, "type", entry.Type)
	return nil
}

var _ events.DeliveryHandler = (*Invalidator)(nil)
