// Package messaging sends outbound SMS through third-party carrier APIs.
package messaging

import "context"

// OutboundSMS is a single text message to deliver.
type OutboundSMS struct {
	To   string
	From string
	Body string
}

// Messenger delivers one SMS. Implementations retry transient failures
// internally and return the last error when delivery gives up.
type Messenger interface {
	Send(ctx context.Context, msg OutboundSMS) error
}
