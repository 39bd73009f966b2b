package retry

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker wraps a sony/gobreaker.CircuitBreaker so a persistently failing
// downstream dependency (Postgres, S3, NATS) trips open and fails fast
// instead of letting every job pile up retries against it.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker builds a Breaker named for the dependency it guards, opening
// after 5 consecutive failures and probing again after 30s half-open.
func NewBreaker(name string) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do runs fn through the breaker. A call made while the breaker is open
// returns gobreaker.ErrOpenState without invoking fn at all.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// State reports the breaker's current state, for health/readiness
// reporting.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
