// Package cache keeps computed availability in Redis so repeated slot
// queries for the same provider do not re-expand templates on every patient
// message. Entries are short-lived and invalidated on any appointment event,
// so a stale read can only ever offer a slot the reservation insert will
// reject.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/harborhealth/telecare-ai-platform/internal/scheduling"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// SlotCache stores computed availability per (provider, lookahead) pair.
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewSlotCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *SlotCache {
	if client == nil {
		panic("cache: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SlotCache{client: client, ttl: ttl, logger: logger}
}

func slotKey(providerID uuid.UUID, lookaheadDays int) string {
	return fmt.Sprintf("slots:%s:%d", providerID, lookaheadDays)
}

// Get returns the cached slots, or (nil, false) on a miss. Redis errors are
// treated as misses; the calculator is always able to answer.
func (c *SlotCache) Get(ctx context.Context, providerID uuid.UUID, lookaheadDays int) ([]scheduling.Slot, bool) {
	data, err := c.client.Get(ctx, slotKey(providerID, lookaheadDays)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("slot cache read failed", "error", err, "provider_id", providerID)
		return nil, false
	}
	var slots []scheduling.Slot
	if err := json.Unmarshal(data, &slots); err != nil {
		c.logger.Warn("slot cache entry corrupt, dropping", "error", err, "provider_id", providerID)
		_ = c.client.Del(ctx, slotKey(providerID, lookaheadDays)).Err()
		return nil, false
	}
	return slots, true
}

// Set stores computed slots with the cache TTL.
func (c *SlotCache) Set(ctx context.Context, providerID uuid.UUID, lookaheadDays int, slots []scheduling.Slot) {
	data, err := json.Marshal(slots)
	if err != nil {
		c.logger.Error("slot cache marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, slotKey(providerID, lookaheadDays), data, c.ttl).Err(); err != nil {
		c.logger.Warn("slot cache write failed", "error", err, "provider_id", providerID)
	}
}

// InvalidateProvider drops every cached window for the provider.
func (c *SlotCache) InvalidateProvider(ctx context.Context, providerID uuid.UUID) error {
	pattern := fmt.Sprintf("slots:%s:*", providerID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache: invalidate %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scan %s: %w", pattern, err)
	}
	return nil
}

// CachedAvailability wraps an availability source with the slot cache. It
// satisfies the booking orchestrator's Availability dependency.
type CachedAvailability struct {
	inner interface {
		ComputeAvailableSlots(ctx context.Context, providerID uuid.UUID, lookaheadDays int) ([]scheduling.Slot, error)
	}
	cache *SlotCache
}

func NewCachedAvailability(inner interface {
	ComputeAvailableSlots(ctx context.Context, providerID uuid.UUID, lookaheadDays int) ([]scheduling.Slot, error)
}, cache *SlotCache) *CachedAvailability {
	if inner == nil {
		panic("cache: availability source required")
	}
	if cache == nil {
		panic("cache: slot cache required")
	}
	return &CachedAvailability{inner: inner, cache: cache}
}

// ComputeAvailableSlots consults the cache first and falls through to the
// calculator on a miss.
func (a *CachedAvailability) ComputeAvailableSlots(ctx context.Context, providerID uuid.UUID, lookaheadDays int) ([]scheduling.Slot, error) {
	if slots, ok := a.cache.Get(ctx, providerID, lookaheadDays); ok {
		return slots, nil
	}
	slots, err := a.inner.ComputeAvailableSlots(ctx, providerID, lookaheadDays)
	if err != nil {
		return nil, err
	}
	a.cache.Set(ctx, providerID, lookaheadDays, slots)
	return slots, nil
}
