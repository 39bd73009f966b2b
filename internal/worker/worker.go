// Package worker implements the orchestrator that ties every other
// internal package together into the per-message handler the bus invokes:
// parse, dedup-check, fetch, validate, transform, upload, persist,
// publish, and map the outcome to ack/nak. Grounded on
// original_source/services/validation-worker/worker.py's ValidationWorker
// (handle_job / _process_logic), generalized from a single hardcoded
// image pipeline to the registry-driven image-or-model dispatch this
// service's expanded scope requires.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jordigilh/assetvalidator/internal/bus"
	"github.com/jordigilh/assetvalidator/internal/dedup"
	"github.com/jordigilh/assetvalidator/internal/failure"
	"github.com/jordigilh/assetvalidator/internal/metrics"
	"github.com/jordigilh/assetvalidator/internal/pipeline"
	"github.com/jordigilh/assetvalidator/internal/repository"
	"github.com/jordigilh/assetvalidator/internal/storage"
	"github.com/jordigilh/assetvalidator/internal/validation"
)

var tracer = otel.Tracer("github.com/jordigilh/assetvalidator/internal/worker")

// Config wires a ValidationWorker's dependencies: the bus/repository/
// storage boundaries, the per-file-type validation pipelines, and the
// per-file-type transform each dispatches to once validation passes.
type Config struct {
	Bus        bus.EventBus
	Repository repository.ListingRepository
	Provider   storage.FileProvider
	Registry   *pipeline.Registry
	Processors map[string]pipeline.Processor // file_type -> processor
	Policy     pipeline.Policy

	// Dedup is optional; a nil Dedup disables the idempotency short-circuit.
	Dedup *dedup.Cache

	Subject     string // ingress subject to subscribe to
	IndexTopic  string // egress topic for IndexListingEvent
	Concurrency int    // max jobs in flight at once; defaults to 1

	Logger *zap.Logger
}

// ValidationWorker is the per-message orchestrator.
type ValidationWorker struct {
	cfg      Config
	sem      chan struct{}
	inFlight sync.WaitGroup
}

// New builds a ValidationWorker from cfg.
func New(cfg Config) *ValidationWorker {
	n := cfg.Concurrency
	if n <= 0 {
		n = 1
	}
	return &ValidationWorker{cfg: cfg, sem: make(chan struct{}, n)}
}

// Start subscribes HandleJob to the configured ingress subject. Delivery
// continues on the bus's own goroutines after Start returns; it does not
// block until shutdown.
func (w *ValidationWorker) Start(ctx context.Context) error {
	w.cfg.Logger.Info("validation worker starting",
		zap.String("subject", w.cfg.Subject), zap.Int("concurrency", cap(w.sem)))
	return w.cfg.Bus.Subscribe(ctx, w.cfg.Subject, w.HandleJob)
}

// Wait blocks until every HandleJob call that was already in flight when
// it was invoked has returned. The caller must stop admitting new
// deliveries before calling Wait, or the drain may never observe zero —
// main does this by closing the bus/DB connections only after Wait
// returns, never before.
func (w *ValidationWorker) Wait() {
	w.inFlight.Wait()
}

// HandleJob is the bus.Handler entry point. It acks the message itself
// for every outcome except a genuine transient failure, which it returns
// unacked so the bus can nak or, past the delivery budget, dead-letter it.
func (w *ValidationWorker) HandleJob(ctx context.Context, msg bus.IncomingMessage) error {
	w.inFlight.Add(1)
	defer w.inFlight.Done()

	w.sem <- struct{}{}
	defer func() { <-w.sem }()

	job, err := validation.ParseJob(msg.Data())
	if err != nil && !failure.IsPermanent(err) {
		w.cfg.Logger.Error("discarding unparseable message", zap.Error(err))
		return ackOnly(ctx, msg)
	}

	ctx, span := tracer.Start(ctx, "HandleJob", trace.WithAttributes(
		attribute.String("trace_id", job.TraceID),
		attribute.String("file_id", job.FileID),
		attribute.String("listing_id", job.ListingID),
		attribute.String("file_type", job.FileType),
	))
	defer span.End()

	log := w.cfg.Logger.With(
		zap.String("trace_id", job.TraceID),
		zap.String("file_id", job.FileID),
		zap.String("listing_id", job.ListingID),
	)

	if err != nil {
		log.Error("rejecting malformed job envelope", zap.Error(err))
		if job.FileID != "" {
			if mErr := w.cfg.Repository.MarkFileInvalid(ctx, job.FileID, failure.Message(err)); mErr != nil {
				log.Error("failed to mark file invalid", zap.Error(mErr))
			}
		}
		return ackOnly(ctx, msg)
	}

	if w.cfg.Dedup != nil {
		isNew, dErr := w.cfg.Dedup.MarkIfNew(ctx, job.FileID)
		if dErr == nil && !isNew {
			metrics.RecordDedupHit()
			log.Info("duplicate delivery, skipping")
			return ackOnly(ctx, msg)
		}
	}

	log.Info("processing job")
	start := time.Now()
	procErr := w.process(ctx, job, log)

	outcome := "valid"
	switch {
	case procErr == nil:
	case failure.IsPermanent(procErr):
		outcome = "invalid"
	default:
		outcome = "failed"
	}
	metrics.RecordJob(job.FileType, outcome, time.Since(start))
	span.SetAttributes(attribute.String("outcome", outcome))

	if procErr == nil {
		log.Info("job complete")
		return ackOnly(ctx, msg)
	}
	span.SetStatus(codes.Error, procErr.Error())

	if failure.IsPermanent(procErr) {
		log.Warn("permanent failure, marking file invalid", zap.Error(procErr))
		if mErr := w.cfg.Repository.MarkFileInvalid(ctx, job.FileID, failure.Message(procErr)); mErr != nil {
			log.Error("failed to mark file invalid", zap.Error(mErr))
		}
		return ackOnly(ctx, msg)
	}

	log.Warn("transient failure, leaving for redelivery", zap.Error(procErr))
	return procErr
}

func ackOnly(ctx context.Context, msg bus.IncomingMessage) error {
	if err := msg.Ack(ctx); err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	return nil
}

// process runs the business logic for one parsed job: fetch, validate,
// transform, upload, persist, and — on listing activation — publish.
// Every error it returns is already classified via internal/failure.
func (w *ValidationWorker) process(ctx context.Context, job validation.Job, log *zap.Logger) error {
	path, cleanup, err := w.cfg.Provider.GetFile(ctx, job.FileKey)
	if err != nil {
		return failure.TransientFrom(err, "failed to fetch file %s", job.FileKey)
	}
	defer cleanup()

	pl, ok := w.cfg.Registry.Lookup(job.FileType)
	if !ok {
		return failure.Permanent("no validation pipeline registered for file type %q", job.FileType)
	}
	proc, ok := w.cfg.Processors[job.FileType]
	if !ok {
		return failure.Permanent("no processor registered for file type %q", job.FileType)
	}

	actx := pipeline.NewContext(path, job.TraceID, job.FileType)

	results := pl.Run(ctx, actx, w.cfg.Policy)
	if bad := pipeline.FirstFailure(results); bad != nil {
		return failure.Permanent("validation failed in %s: %s", bad.ValidatorName, bad.ErrorMessage)
	}

	procResult := proc.Process(actx, nil)
	if !procResult.Success {
		return failure.Permanent("%s", procResult.ErrorMessage)
	}

	var newFileKey *string
	var generatedPaths []string
	var warning *string

	switch job.FileType {
	case "image":
		if procResult.OutputPath == "" {
			return failure.Permanent("processor succeeded but produced no output file")
		}
		defer os.Remove(procResult.OutputPath)
		destID := fmt.Sprintf("%s/%s/%s.webp", job.UserID, job.ListingID, job.FileID)
		if err := w.cfg.Provider.StoreImage(ctx, procResult.OutputPath, destID); err != nil {
			return failure.TransientFrom(err, "failed to upload processed image")
		}
		newFileKey = &destID

	case "model":
		ext := filepath.Ext(path)
		destID := fmt.Sprintf("%s/%s/%s%s", job.UserID, job.ListingID, job.FileID, ext)
		if err := w.cfg.Provider.StoreProductFile(ctx, path, destID); err != nil {
			return failure.TransientFrom(err, "failed to upload original model file")
		}
		newFileKey = &destID

		for _, local := range procResult.GeneratedPaths {
			local := local
			defer os.Remove(local)
			angle := angleFromPath(local)
			genDestID := fmt.Sprintf("%s/%s/%s/%s.webp", job.UserID, job.ListingID, job.FileID, angle)
			if err := w.cfg.Provider.StoreImage(ctx, local, genDestID); err != nil {
				return failure.TransientFrom(err, "failed to upload rendered preview %s", angle)
			}
			generatedPaths = append(generatedPaths, genDestID)
		}
		if procResult.ErrorMessage != "" {
			warning = &procResult.ErrorMessage
		}
	}

	activated, err := w.cfg.Repository.CompleteFileValidation(ctx, job.FileID, job.ListingID, newFileKey, generatedPaths, warning, procResult.Metadata)
	if err != nil {
		return err
	}

	if activated {
		metrics.RecordListingActivated()
		log.Info("listing activated, publishing index event")
		w.publishIndexEvent(ctx, job.ListingID, log)
	}
	return nil
}

// indexListingEvent mirrors the original service's IndexListingEvent shape.
type indexListingEvent struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Topic     string    `json:"topic"`
	ListingID string    `json:"listing_id"`
}

// publishIndexEvent is best-effort: its failure is logged, not propagated,
// since the DB transition (already committed) is the authoritative signal
// that the listing activated.
func (w *ValidationWorker) publishIndexEvent(ctx context.Context, listingID string, log *zap.Logger) {
	payload, err := json.Marshal(indexListingEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Topic:     w.cfg.IndexTopic,
		ListingID: listingID,
	})
	if err != nil {
		log.Error("failed to marshal index listing event", zap.Error(err))
		return
	}
	if err := w.cfg.Bus.Publish(ctx, w.cfg.IndexTopic, payload); err != nil {
		log.Error("failed to publish index listing event", zap.Error(err))
	}
}

// angleFromPath recovers the camera-angle name a Renderer encodes as the
// final "_<angle>" suffix of its output filename.
func angleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if idx := strings.LastIndex(base, "_"); idx >= 0 {
		return base[idx+1:]
	}
	return base
}
