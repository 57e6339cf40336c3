package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/harborhealth/telecare-ai-platform/cmd/mainconfig"
	"github.com/harborhealth/telecare-ai-platform/internal/app/bootstrap"
	appconfig "github.com/harborhealth/telecare-ai-platform/internal/config"
	"github.com/harborhealth/telecare-ai-platform/internal/events"
	"github.com/harborhealth/telecare-ai-platform/internal/intake"
	"github.com/harborhealth/telecare-ai-platform/internal/notify"
	"github.com/harborhealth/telecare-ai-platform/internal/observability/metrics"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting intake worker", "env", cfg.Env)

	if cfg.IntakeQueueURL == "" {
		logger.Error("INTAKE_QUEUE_URL is required")
		os.Exit(1)
	}

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

	bookingMetrics := metrics.NewBookingMetrics(prometheus.NewRegistry())
	contacts := notify.NewPostgresDirectory(pool)
	notifier := bootstrap.BuildNotifier(contacts, awsCfg, cfg, logger)

	orchestrator, err := bootstrap.BuildBookingOrchestrator(awsCfg, core, notifier, bookingMetrics, cfg, logger)
	if err != nil {
		logger.Error("failed to build booking orchestrator", "error", err)
		os.Exit(1)
	}

	queue := intake.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.IntakeQueueURL)
	dedupe := events.NewProcessedStore(pool)
	worker := intake.NewWorker(queue, orchestrator, dedupe, contacts, logger,
		intake.WithWorkerCount(cfg.WorkerCount),
	)
	logger.Info("intake worker consuming", "queue_url", cfg.IntakeQueueURL, "workers", cfg.WorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down intake worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	if err := worker.Shutdown(doneCtx); err != nil {
		logger.Error("intake worker shutdown timed out", "error", err)
		os.Exit(1)
	}
	logger.Info("intake worker stopped")
}
