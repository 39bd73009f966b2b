// Package testutil provides in-memory fakes for the bus, repository, and
// storage boundaries so internal/worker can be exercised without a live
// NATS server, Postgres instance, or S3 bucket.
package testutil

import (
	"context"
	"sync"

	"github.com/jordigilh/assetvalidator/internal/bus"
)

// FakeMessage is a hand-fed IncomingMessage: tests construct one directly
// with NewFakeMessage and hand it to a subscribed handler, then assert on
// Acked/Nak calls afterward.
type FakeMessage struct {
	mu         sync.Mutex
	data       []byte
	deliveries int

	Acked     bool
	Naked     bool
	NakDelay  float64
}

// NewFakeMessage builds a FakeMessage carrying data, on its deliveries'th
// delivery attempt (1 for a first delivery).
func NewFakeMessage(data []byte, deliveries int) *FakeMessage {
	return &FakeMessage{data: data, deliveries: deliveries}
}

func (m *FakeMessage) Data() []byte { return m.data }

func (m *FakeMessage) Ack(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Acked = true
	return nil
}

func (m *FakeMessage) Nak(ctx context.Context, delay float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Naked = true
	m.NakDelay = delay
	return nil
}

func (m *FakeMessage) Deliveries() int { return m.deliveries }

// FakeBus is an in-memory EventBus, grounded on the original service's
// InMemoryEventBus: Publish records every payload, Subscribe records the
// handler for later invocation by a test via Deliver.
type FakeBus struct {
	mu        sync.Mutex
	handlers  map[string]bus.Handler
	Published []PublishedMessage
}

// PublishedMessage is one recorded Publish call.
type PublishedMessage struct {
	Subject string
	Payload []byte
}

// NewFakeBus builds an empty FakeBus.
func NewFakeBus() *FakeBus {
	return &FakeBus{handlers: make(map[string]bus.Handler)}
}

func (b *FakeBus) Publish(ctx context.Context, subject string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Published = append(b.Published, PublishedMessage{Subject: subject, Payload: payload})
	return nil
}

func (b *FakeBus) Subscribe(ctx context.Context, subject string, handler bus.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = handler
	return nil
}

// Deliver invokes the handler subscribed to subject as if msg had just
// arrived from the broker, returning whatever error the handler returns.
func (b *FakeBus) Deliver(ctx context.Context, subject string, msg bus.IncomingMessage) error {
	b.mu.Lock()
	h, ok := b.handlers[subject]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return h(ctx, msg)
}
