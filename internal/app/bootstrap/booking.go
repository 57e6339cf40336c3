package bootstrap

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/harborhealth/telecare-ai-platform/internal/booking"
	appconfig "github.com/harborhealth/telecare-ai-platform/internal/config"
	"github.com/harborhealth/telecare-ai-platform/internal/intent"
	"github.com/harborhealth/telecare-ai-platform/internal/observability/metrics"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// BuildBookingOrchestrator wires the booking paths on top of the scheduling
// core. Without a Bedrock model configured the automated path degrades to a
// human handoff; manual booking is unaffected.
func BuildBookingOrchestrator(awsCfg aws.Config, core *SchedulingCore, notifier booking.Notifier, m *metrics.BookingMetrics, cfg *appconfig.Config, logger *logging.Logger) (*booking.Orchestrator, error) {
	if core == nil {
		return nil, fmt.Errorf("bootstrap: scheduling core is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var parser booking.IntentParser
	if cfg.BedrockModelID != "" {
		parser = intent.NewParser(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID, logger).
			WithMaxTokens(int32(cfg.IntentMaxTokens))
		logger.Info("intent parser enabled", "model", cfg.BedrockModelID)
	} else {
		logger.Warn("no Bedrock model configured; automated bookings will hand off to staff")
	}

	orchestrator := booking.NewOrchestrator(core.Availability, core.Reservations, parser, notifier, m, logger).
		WithIntentTimeout(cfg.IntentTimeout).
		WithLookaheadDays(cfg.DefaultLookaheadDays)

	return orchestrator, nil
}
