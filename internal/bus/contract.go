// Package bus is the message-bus boundary: publishing validation-result
// events and subscribing to incoming validation jobs, with dead-lettering
// for messages that keep failing.
package bus

import "context"

// IncomingMessage is one delivered job. Exactly one of Ack/Nak must be
// called per message; calling neither leaves it unacked until the bus's
// ack-wait timeout elapses and it's redelivered.
type IncomingMessage interface {
	Data() []byte
	Ack(ctx context.Context) error
	Nak(ctx context.Context, delay float64) error
	// Deliveries reports how many times this message has been delivered,
	// including the current attempt (1 on first delivery).
	Deliveries() int
}

// Handler processes one incoming message. Returning an error causes the
// bus to Nak (if under the max-delivery budget) or dead-letter (if not);
// returning nil leaves the message alone — the bus never auto-acks, so the
// handler acks it itself.
type Handler func(ctx context.Context, msg IncomingMessage) error

// EventBus is the durable, at-least-once message bus abstraction. The
// concrete NATS JetStream implementation is the only one wired at
// runtime; tests use an in-memory fake (internal/testutil).
type EventBus interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Subscribe(ctx context.Context, subject string, handler Handler) error
}
