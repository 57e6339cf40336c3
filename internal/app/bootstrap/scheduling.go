package bootstrap

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/harborhealth/telecare-ai-platform/internal/booking"
	"github.com/harborhealth/telecare-ai-platform/internal/cache"
	appconfig "github.com/harborhealth/telecare-ai-platform/internal/config"
	"github.com/harborhealth/telecare-ai-platform/internal/events"
	"github.com/harborhealth/telecare-ai-platform/internal/scheduling"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// SchedulingCore bundles the persistence-backed scheduling services every
// binary needs: template reads, slot computation, atomic reservation, and
// status transitions.
type SchedulingCore struct {
	Store        *scheduling.Store
	Calculator   *scheduling.Calculator
	Availability booking.Availability
	SlotCache    *cache.SlotCache
	Outbox       *events.OutboxStore
	Reservations *scheduling.ReservationStore
	Lifecycle    *scheduling.Lifecycle
}

// BuildSchedulingCore wires the scheduling services on top of the database
// pool. When a Redis client is provided, slot computation is wrapped in a
// short-TTL cache that the outbox invalidator keeps fresh.
func BuildSchedulingCore(pool *pgxpool.Pool, redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) (*SchedulingCore, error) {
	if pool == nil {
		return nil, fmt.Errorf("bootstrap: database pool is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	store := scheduling.NewStore(pool)
	calculator := scheduling.NewCalculator(store, scheduling.SystemClock{}, logger)
	outbox := events.NewOutboxStore(pool)
	reservations := scheduling.NewReservationStore(pool, outbox, logger)
	lifecycle := scheduling.NewLifecycle(pool, reservations, outbox, logger)

	core := &SchedulingCore{
		Store:        store,
		Calculator:   calculator,
		Availability: calculator,
		Outbox:       outbox,
		Reservations: reservations,
		Lifecycle:    lifecycle,
	}

	if redisClient != nil {
		core.SlotCache = cache.NewSlotCache(redisClient, cfg.SlotCacheTTL, logger)
		core.Availability = cache.NewCachedAvailability(calculator, core.SlotCache)
		logger.Info("slot cache enabled", "ttl", cfg.SlotCacheTTL.String())
	}

	return core, nil
}
