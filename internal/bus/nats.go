package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/jordigilh/assetvalidator/internal/metrics"
)

// NatsEventBus is a durable push-consumer EventBus over NATS JetStream.
// It ports the original service's NatsEventBus: a single named durable
// consumer load-balanced across workers in a queue group, explicit acks,
// a bounded redelivery budget, and dead-lettering to a file-backed DLQ
// stream once that budget is exhausted.
//
// github.com/nats-io/nats.go is an out-of-pack dependency — no example
// repo imports a message bus client — grounded directly in
// original_source/.../events/nats_event_bus.py, which is the system this
// spec was distilled from.
type NatsEventBus struct {
	nc          *nats.Conn
	js          nats.JetStreamContext
	streamName  string
	durableName string
	queueGroup  string
	maxDeliver  int
	dlqSubject  string
	logger      *zap.Logger
}

// Config holds the fixed knobs the original service hardcodes per
// deployment (durable/queue group names, retry budget, DLQ subject).
type Config struct {
	StreamName  string
	DurableName string
	QueueGroup  string
	MaxDeliver  int
	// DLQSubject overrides the dead-letter subject; when empty, a message
	// is dead-lettered to "dlq." + its original subject.
	DLQSubject string
}

// NewNatsEventBus wraps an already-connected NATS client and its
// JetStream context.
func NewNatsEventBus(nc *nats.Conn, js nats.JetStreamContext, cfg Config, logger *zap.Logger) *NatsEventBus {
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = 5
	}
	return &NatsEventBus{
		nc:          nc,
		js:          js,
		streamName:  cfg.StreamName,
		durableName: cfg.DurableName,
		queueGroup:  cfg.QueueGroup,
		maxDeliver:  cfg.MaxDeliver,
		dlqSubject:  cfg.DLQSubject,
		logger:      logger,
	}
}

// Publish persists payload to subject via JetStream (not core NATS), so
// publish only returns once the stream has acknowledged durability.
func (b *NatsEventBus) Publish(ctx context.Context, subject string, payload []byte) error {
	_, err := b.js.Publish(subject, payload, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe ensures the DLQ stream exists, creates/updates the durable
// push consumer for subject, and queue-subscribes to its delivery
// subject so exactly one worker in the queue group handles each message.
func (b *NatsEventBus) Subscribe(ctx context.Context, subject string, handler Handler) error {
	if err := b.ensureDLQStream(); err != nil {
		return err
	}

	deliverSubject := "delivery." + b.durableName
	_, err := b.js.AddConsumer(b.streamName, &nats.ConsumerConfig{
		Durable:        b.durableName,
		DeliverGroup:   b.queueGroup,
		DeliverSubject: deliverSubject,
		FilterSubject:  subject,
		AckPolicy:      nats.AckExplicitPolicy,
		AckWait:        60 * time.Second,
		MaxDeliver:     b.maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("configure consumer %s: %w", b.durableName, err)
	}

	_, err = b.nc.QueueSubscribe(deliverSubject, b.queueGroup, func(msg *nats.Msg) {
		b.handleDelivery(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", deliverSubject, err)
	}

	b.logger.Info("subscribed",
		zap.String("subject", subject), zap.String("durable", b.durableName), zap.String("queue_group", b.queueGroup))
	return nil
}

func (b *NatsEventBus) handleDelivery(ctx context.Context, msg *nats.Msg, handler Handler) {
	incoming := &natsIncomingMessage{msg: msg}

	if err := handler(ctx, incoming); err != nil {
		deliveries := incoming.Deliveries()
		if deliveries >= b.maxDeliver {
			b.deadLetter(ctx, msg, err)
			return
		}
		b.logger.Warn("handler failed, nak for redelivery",
			zap.String("subject", msg.Subject), zap.Int("delivery", deliveries), zap.Error(err))
		_ = msg.NakWithDelay(2 * time.Second)
		return
	}
}

// deadLetterEvent mirrors the original service's DeadLetterEvent shape.
type deadLetterEvent struct {
	Topic         string          `json:"topic"`
	OriginalEvent json.RawMessage `json:"original_event"`
	Reason        string          `json:"reason"`
	LatestError   string          `json:"latest_error"`
}

func (b *NatsEventBus) deadLetter(ctx context.Context, msg *nats.Msg, latestError error) {
	b.logger.Error("message exceeded max delivery attempts, sending to DLQ",
		zap.String("subject", msg.Subject), zap.Int("max_deliver", b.maxDeliver))
	metrics.RecordDeadLetter()

	dlqSubject := b.dlqSubject
	if dlqSubject == "" {
		dlqSubject = "dlq." + msg.Subject
	}
	payload, err := buildDeadLetterPayload(msg.Subject, msg.Data, latestError)
	if err != nil {
		b.logger.Error("failed to marshal dead letter event", zap.Error(err))
	} else if err := b.Publish(ctx, dlqSubject, payload); err != nil {
		b.logger.Error("failed to publish dead letter event", zap.Error(err))
	}

	_ = msg.Ack() // remove from the original stream regardless
}

// buildDeadLetterPayload builds the DLQ envelope for a message that
// exhausted its redelivery budget. The original event is embedded as-is
// when it's valid JSON; otherwise it's wrapped so the DLQ record is
// always well-formed JSON even for a garbled payload.
func buildDeadLetterPayload(subject string, data []byte, latestError error) ([]byte, error) {
	original := data
	if !json.Valid(original) {
		wrapped, err := json.Marshal(map[string]string{"original_data": string(data)})
		if err != nil {
			return nil, fmt.Errorf("wrap undecodable original event: %w", err)
		}
		original = wrapped
	}

	event := deadLetterEvent{
		Topic:         subject,
		OriginalEvent: original,
		Reason:        "Exceeded max delivery attempts",
		LatestError:   latestError.Error(),
	}
	return json.Marshal(event)
}

func (b *NatsEventBus) ensureDLQStream() error {
	_, err := b.js.AddStream(&nats.StreamConfig{
		Name:      "DLQ",
		Subjects:  []string{"dlq.>"},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    14 * 24 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		b.logger.Warn("DLQ stream check", zap.Error(err))
		return nil
	}
	return nil
}

type natsIncomingMessage struct {
	msg *nats.Msg
}

func (m *natsIncomingMessage) Data() []byte { return m.msg.Data }

func (m *natsIncomingMessage) Ack(ctx context.Context) error {
	return m.msg.Ack(nats.Context(ctx))
}

func (m *natsIncomingMessage) Nak(ctx context.Context, delaySeconds float64) error {
	return m.msg.NakWithDelay(time.Duration(delaySeconds*float64(time.Second)), nats.Context(ctx))
}

func (m *natsIncomingMessage) Deliveries() int {
	meta, err := m.msg.Metadata()
	if err != nil || meta == nil {
		return 1
	}
	return int(meta.NumDelivered)
}
