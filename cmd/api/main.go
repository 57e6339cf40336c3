package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harborhealth/telecare-ai-platform/cmd/mainconfig"
	"github.com/harborhealth/telecare-ai-platform/internal/api/router"
	"github.com/harborhealth/telecare-ai-platform/internal/app/bootstrap"
	"github.com/harborhealth/telecare-ai-platform/internal/cache"
	appconfig "github.com/harborhealth/telecare-ai-platform/internal/config"
	"github.com/harborhealth/telecare-ai-platform/internal/events"
	"github.com/harborhealth/telecare-ai-platform/internal/http/handlers"
	"github.com/harborhealth/telecare-ai-platform/internal/intake"
	"github.com/harborhealth/telecare-ai-platform/internal/notify"
	"github.com/harborhealth/telecare-ai-platform/internal/observability/metrics"
	"github.com/harborhealth/telecare-ai-platform/internal/realtime"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telecare API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := bootstrap.BuildPool(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	core, err := bootstrap.BuildSchedulingCore(pool, redisClient, cfg, logger)
	if err != nil {
		logger.Error("failed to build scheduling services", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	bookingMetrics := metrics.NewBookingMetrics(registry)

	contacts := notify.NewPostgresDirectory(pool)
	notifier := bootstrap.BuildNotifier(contacts, awsCfg, cfg, logger)
	orchestrator, err := bootstrap.BuildBookingOrchestrator(awsCfg, core, notifier, bookingMetrics, cfg, logger)
	if err != nil {
		logger.Error("failed to build booking orchestrator", "error", err)
		os.Exit(1)
	}

	// Outbox observers: appointment events fan out to the websocket hub and,
	// when caching is on, to the slot cache invalidator.
	hub := realtime.NewHub(logger)
	observers := events.FanOut{hub}
	if core.SlotCache != nil {
		observers = append(observers, cache.NewInvalidator(core.SlotCache, logger))
	}
	deliverer := events.NewDeliverer(core.Outbox, observers, logger)
	go deliverer.Start(ctx)

	// Inbound message queue. In memory-queue mode the intake worker runs
	// inside this process so webhook messages are still consumed.
	var publisher *intake.Publisher
	if cfg.UseMemoryQueue {
		queue := intake.NewMemoryQueue(64)
		publisher = intake.NewPublisher(queue)
		dedupe := events.NewProcessedStore(pool)
		worker := intake.NewWorker(queue, orchestrator, dedupe, contacts, logger,
			intake.WithWorkerCount(cfg.WorkerCount),
		)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			_ = worker.Shutdown(shutdownCtx)
		}()
		logger.Info("in-process intake worker started", "workers", cfg.WorkerCount)
	} else if cfg.IntakeQueueURL != "" {
		publisher = intake.NewPublisher(intake.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.IntakeQueueURL))
		logger.Info("intake queue configured", "queue_url", cfg.IntakeQueueURL)
	} else {
		logger.Warn("no intake queue configured; inbound webhook disabled")
	}

	schedulingHandler := handlers.NewSchedulingHandler(core.Availability, core.Store, orchestrator, core.Lifecycle, bookingMetrics, logger).
		WithLookaheadBounds(cfg.DefaultLookaheadDays, cfg.MaxLookaheadDays)

	var webhookHandler *handlers.WebhookHandler
	if publisher != nil {
		webhookHandler = handlers.NewWebhookHandler(publisher, logger)
	}

	routerCfg := &router.Config{
		Logger:             logger,
		Scheduling:         schedulingHandler,
		Webhook:            webhookHandler,
		RealtimeHub:        hub,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		StaffAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: splitOrigins(cfg.CORSAllowedOrigins),
		WebhookRateLimit:   cfg.WebhookRateLimit,
		WebhookBurst:       cfg.WebhookBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
