package bootstrap

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/harborhealth/telecare-ai-platform/internal/config"
	"github.com/harborhealth/telecare-ai-platform/internal/messaging"
	"github.com/harborhealth/telecare-ai-platform/internal/notify"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// BuildNotifier assembles the patient notification service: contact lookup
// from the patient directory, SMS through the configured carrier, and email
// as the fallback channel. Missing credentials degrade to stub senders so
// bookings never fail on notification setup.
func BuildNotifier(contacts *notify.PostgresDirectory, awsCfg aws.Config, cfg *appconfig.Config, logger *logging.Logger) *notify.Service {
	if logger == nil {
		logger = logging.Default()
	}

	var emailSender notify.EmailSender
	switch strings.ToLower(strings.TrimSpace(cfg.EmailProvider)) {
	case "ses":
		if cfg.SESFromEmail != "" {
			emailSender = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger)
			logger.Info("ses email sender initialized for notifications")
		}
	default:
		if cfg.SendGridAPIKey != "" && cfg.SendGridFromEmail != "" {
			emailSender = notify.NewSendGridSender(notify.SendGridConfig{
				APIKey:    cfg.SendGridAPIKey,
				FromEmail: cfg.SendGridFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger)
			logger.Info("sendgrid email sender initialized for notifications")
		}
	}
	if emailSender == nil {
		emailSender = notify.NewStubEmailSender(logger)
		logger.Warn("email notifications disabled; sender credentials not set")
	}

	var smsSender notify.SMSSender
	messenger, provider, reason := messaging.BuildMessenger(messaging.ProviderSelectionConfig{
		Preference:       cfg.SMSProvider,
		TelnyxAPIKey:     cfg.TelnyxAPIKey,
		TelnyxProfileID:  cfg.TelnyxMessagingProfileID,
		TwilioAccountSID: cfg.TwilioAccountSID,
		TwilioAuthToken:  cfg.TwilioAuthToken,
		TwilioFromNumber: cfg.SMSFromNumber,
	}, logger)
	if messenger != nil && cfg.SMSFromNumber != "" {
		smsSender = notify.NewSimpleSMSSender(cfg.SMSFromNumber, func(ctx context.Context, to, from, body string) error {
			return messenger.Send(ctx, messaging.OutboundSMS{To: to, From: from, Body: body})
		}, logger)
		logger.Info("sms sender initialized for notifications", "provider", provider)
	} else {
		smsSender = notify.NewStubSMSSender(logger)
		logger.Warn("patient SMS notifications disabled", "reason", reason)
	}

	return notify.NewService(contacts, smsSender, emailSender, logger)
}
