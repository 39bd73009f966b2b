package retry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DefaultConfig", func() {
	It("provides sensible defaults", func() {
		cfg := DefaultConfig()
		Expect(cfg.MaxAttempts).To(Equal(3))
		Expect(cfg.InitialDelay).To(Equal(100 * time.Millisecond))
		Expect(cfg.MaxDelay).To(Equal(5 * time.Second))
		Expect(cfg.BackoffMultiplier).To(Equal(2.0))
		Expect(cfg.Jitter).To(BeTrue())
	})
})

var _ = Describe("DatabaseConfig", func() {
	It("retries more patiently than the default", func() {
		cfg := DatabaseConfig()
		Expect(cfg.MaxAttempts).To(Equal(5))
		Expect(cfg.InitialDelay).To(Equal(250 * time.Millisecond))
	})
})

var _ = Describe("IsRetryableError", func() {
	It("treats nil as not retryable", func() {
		Expect(IsRetryableError(nil)).To(BeFalse())
	})

	It("never retries context cancellation", func() {
		Expect(IsRetryableError(context.Canceled)).To(BeFalse())
	})

	It("retries a deadline exceeded or a closed connection", func() {
		Expect(IsRetryableError(context.DeadlineExceeded)).To(BeTrue())
		Expect(IsRetryableError(sql.ErrConnDone)).To(BeTrue())
	})

	It("pattern-matches common transient infrastructure messages", func() {
		for _, msg := range []string{
			"connection refused", "deadlock detected", "broken pipe error", "i/o timeout on network operation",
		} {
			Expect(IsRetryableError(errors.New(msg))).To(BeTrue(), msg)
		}
	})

	It("does not retry an unrecognized permanent error", func() {
		Expect(IsRetryableError(errors.New("invalid file type"))).To(BeFalse())
	})
})

var _ = Describe("Do", func() {
	It("returns nil immediately on first success", func() {
		calls := 0
		err := Do(context.Background(), DefaultConfig(), func(ctx context.Context) error {
			calls++
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(1))
	})

	It("retries a transient error up to MaxAttempts then gives up", func() {
		calls := 0
		cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiplier: 2}
		err := Do(context.Background(), cfg, func(ctx context.Context) error {
			calls++
			return errors.New("connection refused")
		})
		Expect(err).To(HaveOccurred())
		Expect(calls).To(Equal(3))
	})

	It("does not retry a non-retryable error", func() {
		calls := 0
		err := Do(context.Background(), DefaultConfig(), func(ctx context.Context) error {
			calls++
			return errors.New("invalid payload")
		})
		Expect(err).To(HaveOccurred())
		Expect(calls).To(Equal(1))
	})

	It("stops retrying once the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg := Config{MaxAttempts: 3, InitialDelay: 10 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2}
		calls := 0
		err := Do(ctx, cfg, func(ctx context.Context) error {
			calls++
			return errors.New("connection refused")
		})
		Expect(err).To(HaveOccurred())
		Expect(calls).To(Equal(1))
	})
})
