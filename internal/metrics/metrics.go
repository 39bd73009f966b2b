// Package metrics exposes the worker's Prometheus instrumentation:
// throughput, outcome breakdown, and per-stage latency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// JobsProcessedTotal counts every job the worker finished handling,
	// labeled by file_type and outcome (valid/invalid/failed).
	JobsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assetvalidator_jobs_processed_total",
		Help: "Total number of validation jobs processed, by file type and outcome.",
	}, []string{"file_type", "outcome"})

	// ValidatorDuration tracks how long each validator takes to run.
	ValidatorDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assetvalidator_validator_duration_seconds",
		Help:    "Duration of an individual validator run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"validator"})

	// JobDuration tracks end-to-end job processing time.
	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assetvalidator_job_duration_seconds",
		Help:    "End-to-end duration of one validation job.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"file_type"})

	// DeadLetteredTotal counts messages that exhausted their redelivery
	// budget and were sent to the DLQ.
	DeadLetteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assetvalidator_dead_lettered_total",
		Help: "Total number of messages dead-lettered after exceeding max delivery attempts.",
	})

	// ListingsActivatedTotal counts listings this worker transitioned to
	// ACTIVE (i.e. this call's CompleteFileValidation returned true).
	ListingsActivatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assetvalidator_listings_activated_total",
		Help: "Total number of listings activated by this worker.",
	})

	// DedupHitsTotal counts messages short-circuited by the idempotency
	// cache before any processing began.
	DedupHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assetvalidator_dedup_hits_total",
		Help: "Total number of messages skipped as already-seen duplicates.",
	})
)

func init() {
	prometheus.MustRegister(JobsProcessedTotal, ValidatorDuration, JobDuration, DeadLetteredTotal, ListingsActivatedTotal, DedupHitsTotal)
}

// RecordJob records the terminal outcome of one job.
func RecordJob(fileType, outcome string, duration time.Duration) {
	JobsProcessedTotal.WithLabelValues(fileType, outcome).Inc()
	JobDuration.WithLabelValues(fileType).Observe(duration.Seconds())
}

// RecordValidator records how long a single validator took to run.
func RecordValidator(name string, duration time.Duration) {
	ValidatorDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// RecordDeadLetter increments the dead-letter counter.
func RecordDeadLetter() {
	DeadLetteredTotal.Inc()
}

// RecordListingActivated increments the listing-activation counter.
func RecordListingActivated() {
	ListingsActivatedTotal.Inc()
}

// RecordDedupHit increments the dedup short-circuit counter.
func RecordDedupHit() {
	DedupHitsTotal.Inc()
}
