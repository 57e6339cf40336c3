package messaging

import (
	"context"
	"errors"

	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// FailoverMessenger attempts a primary send, then falls back to a secondary
// provider on error.
type FailoverMessenger struct {
	primary       Messenger
	secondary     Messenger
	primaryName   string
	secondaryName string
	logger        *logging.Logger
}

// NewFailoverMessenger builds a failover messenger with named providers.
func NewFailoverMessenger(primary Messenger, primaryName string, secondary Messenger, secondaryName string, logger *logging.Logger) *FailoverMessenger {
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverMessenger{
		primary:       primary,
		secondary:     secondary,
		primaryName:   primaryName,
		secondaryName: secondaryName,
		logger:        logger,
	}
}

var _ Messenger = (*FailoverMessenger)(nil)

// Send tries the primary provider first, then the secondary on failure.
func (f *FailoverMessenger) Send(ctx context.Context, msg OutboundSMS) error {
	if f == nil || f.primary == nil {
		return errors.New("messaging: failover primary sender not configured")
	}
	err := f.primary.Send(ctx, msg)
	if err == nil {
		return nil
	}
	if f.secondary == nil {
		return err
	}
	f.logger.Warn("primary sms send failed; attempting fallback",
		"provider", f.primaryName,
		"fallback", f.secondaryName,
		"error", err,
		"to", msg.To,
	)
	if fallbackErr := f.secondary.Send(ctx, msg); fallbackErr != nil {
		f.logger.Error("fallback sms send failed",
			"provider", f.secondaryName,
			"error", fallbackErr,
			"to", msg.To,
		)
		return fallbackErr
	}
	return nil
}
