package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jordigilh/assetvalidator/internal/metrics"
)

// Pipeline is the two-phase validator executor: critical validators run
// strictly in declaration order and the first failure aborts the run
// before any standard validator starts; the remaining standard validators
// then run in parallel, bounded by the host's logical CPU count.
type Pipeline struct {
	validators []Validator
	logger     *zap.Logger
}

// standardSlots bounds standard-phase validators across every
// concurrently running pipeline to the host's logical CPU count.
var standardSlots = semaphore.NewWeighted(int64(runtime.NumCPU()))

// New builds a Pipeline over validators, preserving declaration order for
// the critical phase.
func New(logger *zap.Logger, validators ...Validator) *Pipeline {
	return &Pipeline{validators: validators, logger: logger}
}

// Run executes the critical phase sequentially, then — only if every
// critical validator passed — the standard phase in parallel. Results are
// appended as they finish; the order of standard-phase results is not
// stable and callers must not depend on it.
func (p *Pipeline) Run(ctx context.Context, actx *Context, policy Policy) []Result {
	log := p.logger.With(zap.String("trace_id", actx.TraceID), zap.String("file_path", actx.FilePath))
	log.Info("starting validation pipeline", zap.String("file_type_hint", actx.FileTypeHint))

	var results []Result

	for _, v := range p.validators {
		if !v.IsCritical() {
			continue
		}
		res := execute(v, actx, policy)
		results = append(results, res)
		if !res.IsValid {
			log.Warn("critical validator failed, aborting pipeline",
				zap.String("validator", res.ValidatorName),
				zap.String("error_code", string(res.ErrorCode)))
			return results
		}
	}

	var standard []Validator
	for _, v := range p.validators {
		if !v.IsCritical() {
			standard = append(standard, v)
		}
	}
	if len(standard) == 0 {
		return results
	}

	sem := standardSlots
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, v := range standard {
		v := v
		wg.Add(1)
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled (shutdown mid-job): stop spawning more,
			// but still wait for whatever is already running.
			wg.Done()
			continue
		}
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			res := execute(v, actx, policy)
			log.Info("standard validator finished",
				zap.String("validator", res.ValidatorName),
				zap.Duration("duration", res.Duration),
				zap.Bool("is_valid", res.IsValid))
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}()
	}
	wg.Wait()

	return results
}

// execute wraps one validator invocation with panic recovery and timing,
// so a crashing Validate implementation never takes the handler down with
// it — it simply becomes a failed Result.
func execute(v Validator, actx *Context, policy Policy) (result Result) {
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			result = Result{
				ValidatorName: v.Name(),
				IsValid:       false,
				ErrorCode:     ErrUnknown,
				ErrorMessage:  fmt.Sprintf("uncaught panic: %v", r),
				Duration:      time.Since(start),
			}
		}
		metrics.RecordValidator(result.ValidatorName, result.Duration)
	}()
	result = v.Validate(actx, policy)
	if result.ValidatorName == "" {
		result.ValidatorName = v.Name()
	}
	return result
}

// FirstFailure returns the first non-valid result, or nil if every
// validator in results passed.
func FirstFailure(results []Result) *Result {
	for i := range results {
		if !results[i].IsValid {
			return &results[i]
		}
	}
	return nil
}
