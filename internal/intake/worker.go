// Package intake moves inbound patient messages from the SMS webhook to the
// booking orchestrator through a queue. The queue decouples webhook latency
// from LLM latency and lets development run on an in-memory queue while
// production points at SQS.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborhealth/telecare-ai-platform/internal/booking"
	"github.com/harborhealth/telecare-ai-platform/internal/notify"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

// InboundMessage is one patient message as received from a channel webhook.
type InboundMessage struct {
	Channel     string    `json:"channel"` // "sms", "webchat"
	MessageID   string    `json:"message_id"`
	ProviderID  uuid.UUID `json:"provider_id"`
	PatientID   uuid.UUID `json:"patient_id,omitempty"`
	PatientName string    `json:"patient_name,omitempty"`
	FromPhone   string    `json:"from_phone"`
	Body        string    `json:"body"`
	ReceivedAt  time.Time `json:"received_at"`
}

// ResolvePatientID fills PatientID when the channel did not supply one,
// deriving a stable UUID from the phone number so the same patient always
// maps to the same record.
func (m *InboundMessage) ResolvePatientID() {
	if m.PatientID != uuid.Nil {
		return
	}
	m.PatientID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("tel:"+m.FromPhone))
}

// BookingService is the automated booking path the worker drives.
type BookingService interface {
	BookFromIntent(ctx context.Context, req booking.IntentBookingRequest) (*booking.Outcome, error)
}

// DedupeStore filters webhook redeliveries. *events.ProcessedStore
// satisfies it.
type DedupeStore interface {
	AlreadyProcessed(ctx context.Context, channel, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, channel, messageID string) (bool, error)
}

// ContactWriter records how to reach the patient who just messaged in.
type ContactWriter interface {
	UpsertContact(ctx context.Context, c notify.Contact) error
}

// Publisher enqueues inbound messages for the worker pool.
type Publisher struct {
	queue queueClient
}

func NewPublisher(queue queueClient) *Publisher {
	if queue == nil {
		panic("intake: queue cannot be nil")
	}
	return &Publisher{queue: queue}
}

// Enqueue queues a message for processing.
func (p *Publisher) Enqueue(ctx context.Context, msg InboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("intake: marshal message: %w", err)
	}
	return p.queue.Send(ctx, string(data))
}

const (
	defaultWorkers     = 2
	defaultReceiveWait = 2 // seconds
	defaultReceiveMax  = 5 // messages
)

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// WorkerOption configures the worker pool.
type WorkerOption func(*workerConfig)

// WithWorkerCount overrides the number of queue polling goroutines.
func WithWorkerCount(workers int) WorkerOption {
	return func(cfg *workerConfig) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait time for receive calls.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds >= 0 && seconds <= 20 {
			cfg.receiveWaitSecs = seconds
		}
	}
}

// Worker polls the intake queue and runs each message through the automated
// booking path.
type Worker struct {
	queue    queueClient
	bookings BookingService
	dedupe   DedupeStore
	contacts ContactWriter
	logger   *logging.Logger

	cfg workerConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker starts the polling goroutines immediately. dedupe and contacts
// may be nil; the corresponding step is skipped.
func NewWorker(queue queueClient, bookings BookingService, dedupe DedupeStore, contacts ContactWriter, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if queue == nil {
		panic("intake: queue cannot be nil")
	}
	if bookings == nil {
		panic("intake: booking service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkers,
		receiveWaitSecs:  defaultReceiveWait,
		receiveBatchSize: defaultReceiveMax,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		queue:    queue,
		bookings: bookings,
		dedupe:   dedupe,
		contacts: contacts,
		logger:   logger,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := 0; i < cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(i + 1)
	}

	return w
}

// Shutdown stops polling and waits for in-flight messages, bounded by ctx.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) run(workerID int) {
	defer w.wg.Done()
	w.logger.Debug("intake worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("intake worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(w.ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive intake messages", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handle(msg)
		}
	}
}

func (w *Worker) handle(msg queueMessage) {
	var inbound InboundMessage
	if err := json.Unmarshal([]byte(msg.Body), &inbound); err != nil {
		w.logger.Error("failed to decode intake message, dropping", "error", err)
		w.delete(msg.ReceiptHandle)
		return
	}
	inbound.ResolvePatientID()

	ctx := w.ctx

	if w.dedupe != nil && inbound.MessageID != "" {
		seen, err := w.dedupe.AlreadyProcessed(ctx, inbound.Channel, inbound.MessageID)
		if err != nil {
			// Leave the message queued so redelivery retries the check.
			w.logger.Error("dedupe check failed", "error", err, "message_id", inbound.MessageID)
			return
		}
		if seen {
			w.logger.Debug("duplicate inbound message skipped", "channel", inbound.Channel, "message_id", inbound.MessageID)
			w.delete(msg.ReceiptHandle)
			return
		}
	}

	if w.contacts != nil && inbound.FromPhone != "" {
		err := w.contacts.UpsertContact(ctx, notify.Contact{
			PatientID: inbound.PatientID,
			Name:      inbound.PatientName,
			Phone:     inbound.FromPhone,
		})
		if err != nil {
			w.logger.Error("failed to record patient contact", "error", err, "patient_id", inbound.PatientID)
		}
	}

	outcome, err := w.bookings.BookFromIntent(ctx, booking.IntentBookingRequest{
		ProviderID:  inbound.ProviderID,
		PatientID:   inbound.PatientID,
		MessageText: inbound.Body,
	})
	if err != nil {
		// Transient failure: keep the message for redelivery.
		w.logger.Error("automated booking failed", "error", err, "message_id", inbound.MessageID)
		return
	}

	w.logger.Info("inbound message processed",
		"channel", inbound.Channel,
		"message_id", inbound.MessageID,
		"provider_id", inbound.ProviderID,
		"outcome", outcome.Code,
	)

	if w.dedupe != nil && inbound.MessageID != "" {
		if _, err := w.dedupe.MarkProcessed(ctx, inbound.Channel, inbound.MessageID); err != nil {
			w.logger.Error("failed to mark message processed", "error", err, "message_id", inbound.MessageID)
		}
	}
	w.delete(msg.ReceiptHandle)
}

func (w *Worker) delete(receiptHandle string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Error("failed to delete intake message", "error", err)
	}
}
