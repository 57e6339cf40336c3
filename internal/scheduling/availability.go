package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

var availabilityTracer = otel.Tracer("telecare.internal.scheduling.availability")

// DefaultLookaheadDays is used when a caller does not specify a window.
const DefaultLookaheadDays = 30

// ProviderReader resolves provider records.
type ProviderReader interface {
	GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error)
}

// TemplateReader lists a provider's active weekly template entries.
type TemplateReader interface {
	ListActiveEntries(ctx context.Context, providerID uuid.UUID) ([]TemplateEntry, error)
}

// BookedReader lists non-cancelled appointment timestamps in a window.
type BookedReader interface {
	ListBookedTimes(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]time.Time, error)
}

// AvailabilityReader combines the three read dependencies of the calculator.
// *Store satisfies it.
type AvailabilityReader interface {
	ProviderReader
	TemplateReader
	BookedReader
}

// Calculator expands a provider's weekly template into concrete free slots.
// It is read-only and side-effect free; any number of calls may run
// concurrently.
type Calculator struct {
	store  AvailabilityReader
	clock  Clock
	logger *logging.Logger
}

// NewCalculator creates a calculator over the given reader.
func NewCalculator(store AvailabilityReader, clock Clock, logger *logging.Logger) *Calculator {
	if store == nil {
		panic("scheduling: availability reader required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Calculator{store: store, clock: clock, logger: logger}
}

// ComputeAvailableSlots returns the provider's bookable slots over the next
// lookaheadDays calendar days, in chronological order. Passing a
// non-positive lookahead selects DefaultLookaheadDays. An unknown provider
// yields ErrProviderNotFound; a provider with no template entries yields an
// empty, non-error result.
func (c *Calculator) ComputeAvailableSlots(ctx context.Context, providerID uuid.UUID, lookaheadDays int) ([]Slot, error) {
	ctx, span := availabilityTracer.Start(ctx, "scheduling.compute_available_slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("telecare.provider_id", providerID.String()),
		attribute.Int("telecare.lookahead_days", lookaheadDays),
	)

	if lookaheadDays <= 0 {
		lookaheadDays = DefaultLookaheadDays
	}

	provider, err := c.store.GetProvider(ctx, providerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	loc, err := time.LoadLocation(provider.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduling: provider %s timezone %q: %w", provider.ID, provider.Timezone, err)
	}

	entries, err := c.store.ListActiveEntries(ctx, providerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	byWeekday := make(map[time.Weekday][]TemplateEntry, len(entries))
	for _, e := range entries {
		if err := e.validate(); err != nil {
			c.logger.Warn("skipping malformed template entry", "entry_id", e.ID, "error", err)
			continue
		}
		byWeekday[e.Weekday] = append(byWeekday[e.Weekday], e)
	}

	now := c.clock.Now().In(loc)
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	windowEnd := windowStart.AddDate(0, 0, lookaheadDays)

	bookedTimes, err := c.store.ListBookedTimes(ctx, providerID, windowStart, windowEnd)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	booked := make(map[int64]struct{}, len(bookedTimes))
	for _, t := range bookedTimes {
		booked[t.Unix()] = struct{}{}
	}

	var slots []Slot
	seen := make(map[int64]struct{})

	for offset := 0; offset < lookaheadDays; offset++ {
		day := windowStart.AddDate(0, 0, offset)
		dayEntries := byWeekday[day.Weekday()]
		if len(dayEntries) == 0 {
			continue
		}

		var daySlots []Slot
		for _, e := range dayEntries {
			// Step from start to end; a trailing remainder shorter than one
			// slot is dropped.
			for m := e.StartMinute; m+e.SlotMinutes <= e.EndMinute; m += e.SlotMinutes {
				ts := time.Date(day.Year(), day.Month(), day.Day(), 0, m, 0, 0, loc)
				if !ts.After(now) {
					continue
				}
				key := ts.Unix()
				if _, dup := seen[key]; dup {
					continue
				}
				if _, taken := booked[key]; taken {
					continue
				}
				seen[key] = struct{}{}
				daySlots = append(daySlots, Slot{
					ProviderID: providerID,
					StartsAt:   ts,
					Minutes:    e.SlotMinutes,
					VisitType:  e.VisitType,
					Label:      FormatSlotLabel(ts),
				})
			}
		}

		// Overlapping template entries can interleave; keep each day ordered.
		sort.Slice(daySlots, func(i, j int) bool { return daySlots[i].StartsAt.Before(daySlots[j].StartsAt) })
		slots = append(slots, daySlots...)
	}

	span.SetAttributes(attribute.Int("telecare.slot_count", len(slots)))
	return slots, nil
}

// HasSlot reports whether the given timestamp is currently one of the
// provider's available slots. Used by the manual booking path to give a
// friendly rejection before attempting the atomic reserve.
func (c *Calculator) HasSlot(ctx context.Context, providerID uuid.UUID, ts time.Time, lookaheadDays int) (bool, error) {
	slots, err := c.ComputeAvailableSlots(ctx, providerID, lookaheadDays)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.StartsAt.Equal(ts) {
			return true, nil
		}
	}
	return false, nil
}
