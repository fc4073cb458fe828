package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/resumify/docflow/internal/domain/recordModel"
	"github.com/resumify/docflow/internal/faults"
	"github.com/resumify/docflow/internal/metrics"
	"github.com/resumify/docflow/internal/ocrjob"
	"github.com/resumify/docflow/pkg/logger_i"
)

type Config struct {
	// non-terminal records past this window since creation are timed out
	Timeout time.Duration
	// cadence of Start's ticker
	Interval time.Duration
	// transient poll outcomes tolerated before the record fails hard
	MaxPollAttempts int
	// records polled concurrently within one pass
	Concurrency int
}

type outcome string

const (
	outcomeCompleted outcome = "completed"
	outcomeFailed    outcome = "failed"
	outcomeTimedOut  outcome = "timed_out"
	outcomeInFlight  outcome = "in_flight"
	outcomeConflict  outcome = "conflict"
	outcomeError     outcome = "error"
)

// Summary is the per-pass report emitted for observability. It carries no
// data-integrity obligations; the record store is the source of truth.
type Summary struct {
	Scanned   int
	Completed int
	Failed    int
	TimedOut  int
	InFlight  int
	Conflicts int
	Errors    int
}

// Reconciler drives every non-terminal asynchronous record toward a terminal
// state. It holds no state between passes and takes no locks: safety under
// overlapping invocations comes entirely from the store's conditional updates.
// When a conditional update reports a conflict the record is silently
// abandoned - some other pass already moved it.
type Reconciler struct {
	store  recordModel.RecordStore
	jobs   ocrjob.Client
	cfg    Config
	logger *logger_i.Logger
	now    func() time.Time
}

func NewReconciler(store recordModel.RecordStore, jobs ocrjob.Client, cfg Config) *Reconciler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Reconciler{
		store:  store,
		jobs:   jobs,
		cfg:    cfg,
		logger: logger_i.NewLogger("Reconciler"),
		now:    time.Now,
	}
}

// Start runs passes on the configured cadence until ctx is cancelled. Passes
// run inline; if one overruns the interval the next tick is simply late, and
// overlapping passes from other instances are safe regardless.
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("Reconciler started", "interval", r.cfg.Interval, "timeout", r.cfg.Timeout)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reconciler stopped")
			return
		case <-ticker.C:
			r.RunPass(ctx)
		}
	}
}

// RunPass reconciles every record currently in {Pending, Processing} with an
// asynchronous source. A failing record never aborts the batch.
func (r *Reconciler) RunPass(ctx context.Context) Summary {
	start := r.now()
	defer func() {
		metrics.CaptureReconcilePass(time.Since(start))
	}()

	records, err := r.store.QueryByStatus(ctx,
		[]recordModel.Status{recordModel.StatusPending, recordModel.StatusProcessing},
		recordModel.SourceAsynchronousJob)
	if err != nil {
		r.logger.Error("Failed to scan records", "error", err)
		return Summary{}
	}

	var (
		mu      sync.Mutex
		summary = Summary{Scanned: len(records)}
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.Concurrency)
	for _, rec := range records {
		rec := rec
		group.Go(func() error {
			result := r.reconcileRecord(groupCtx, rec)
			metrics.CountReconcileOutcome(string(result))
			mu.Lock()
			switch result {
			case outcomeCompleted:
				summary.Completed++
			case outcomeFailed:
				summary.Failed++
			case outcomeTimedOut:
				summary.TimedOut++
			case outcomeInFlight:
				summary.InFlight++
			case outcomeConflict:
				summary.Conflicts++
			case outcomeError:
				summary.Errors++
			}
			mu.Unlock()
			// per-record failures are already logged; never fail the group
			return nil
		})
	}
	_ = group.Wait()

	r.logger.Info("Reconciliation pass finished",
		"scanned", summary.Scanned,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"timedOut", summary.TimedOut,
		"inFlight", summary.InFlight,
		"conflicts", summary.Conflicts,
		"errors", summary.Errors,
		"elapsed", time.Since(start))
	return summary
}

func (r *Reconciler) reconcileRecord(ctx context.Context, rec recordModel.DocumentRecord) outcome {
	log := r.logger.With("recordId", rec.Id, "jobRef", rec.ExternalJobRef)

	// timeout is enforced here, never by the OCR service; a retried record
	// runs on its own cycle start, not the original upload time
	if age := r.now().Sub(rec.CycleStart()); age > r.cfg.Timeout {
		info := faults.New(recordModel.ErrKindTimeout, "")
		applied, err := r.store.UpdateIfStatus(ctx, rec.Id, rec.Status, recordModel.RecordPatch{
			Status:    recordModel.StatusTimedOut,
			ErrorInfo: &info,
		})
		if err != nil {
			log.Error("Failed to time out record", "error", err)
			return outcomeError
		}
		if !applied {
			return outcomeConflict
		}
		log.Warn("Record timed out", "age", age)
		return outcomeTimedOut
	}

	// a Pending record with no job reference is mid-redispatch; leave it for
	// the ingest path or the timeout above
	if rec.ExternalJobRef == "" {
		return outcomeInFlight
	}

	result, err := r.jobs.Poll(ctx, rec.ExternalJobRef)
	if err != nil {
		if errors.Is(err, ocrjob.ErrInvalidJobRef) {
			info := faults.New(recordModel.ErrKindInvalidJobReference, "")
			return r.finish(ctx, log, rec, recordModel.RecordPatch{
				Status:    recordModel.StatusFailed,
				ErrorInfo: &info,
			}, outcomeFailed)
		}
		log.Warn("Poll failed, will retry next pass", "error", err, "attempt", rec.AttemptCount)
		return r.transient(ctx, log, rec)
	}

	switch result.Status {
	case ocrjob.StatusSucceeded:
		if result.Text == "" {
			info := faults.New(recordModel.ErrKindEmptyResult, "")
			return r.finish(ctx, log, rec, recordModel.RecordPatch{
				Status:    recordModel.StatusFailed,
				ErrorInfo: &info,
			}, outcomeFailed)
		}
		return r.finish(ctx, log, rec, recordModel.RecordPatch{
			Status:        recordModel.StatusCompleted,
			ExtractedText: &result.Text,
		}, outcomeCompleted)

	case ocrjob.StatusFailed:
		info := faults.FromJobError(result.ErrorKind, result.ErrorMessage)
		return r.finish(ctx, log, rec, recordModel.RecordPatch{
			Status:    recordModel.StatusFailed,
			ErrorInfo: &info,
		}, outcomeFailed)

	case ocrjob.StatusNotFound:
		// the just-submitted visibility window; transient, but it still
		// counts against the attempt ceiling so a silently dropped
		// submission cannot hang until the timeout
		log.Debug("Job not visible yet", "attempt", rec.AttemptCount)
		return r.transient(ctx, log, rec)

	default: // IN_PROGRESS
		applied, err := r.store.UpdateIfStatus(ctx, rec.Id, rec.Status, recordModel.RecordPatch{
			Status:      recordModel.StatusProcessing,
			BumpAttempt: true,
		})
		if err != nil {
			log.Error("Failed to bump attempt count", "error", err)
			return outcomeError
		}
		if !applied {
			return outcomeConflict
		}
		return outcomeInFlight
	}
}

// transient handles poll outcomes that should resolve on a later pass, unless
// this record already burned through its attempt ceiling.
func (r *Reconciler) transient(ctx context.Context, log *logger_i.Logger, rec recordModel.DocumentRecord) outcome {
	if rec.AttemptCount+1 > r.cfg.MaxPollAttempts {
		info := faults.New(recordModel.ErrKindExternalService, "poll attempt ceiling reached")
		log.Error("Attempt ceiling reached, failing record", "attempts", rec.AttemptCount)
		return r.finish(ctx, log, rec, recordModel.RecordPatch{
			Status:    recordModel.StatusFailed,
			ErrorInfo: &info,
		}, outcomeFailed)
	}

	applied, err := r.store.UpdateIfStatus(ctx, rec.Id, rec.Status, recordModel.RecordPatch{
		Status:      recordModel.StatusProcessing,
		BumpAttempt: true,
	})
	if err != nil {
		log.Error("Failed to bump attempt count", "error", err)
		return outcomeError
	}
	if !applied {
		return outcomeConflict
	}
	return outcomeInFlight
}

func (r *Reconciler) finish(ctx context.Context, log *logger_i.Logger, rec recordModel.DocumentRecord,
	patch recordModel.RecordPatch, success outcome) outcome {

	applied, err := r.store.UpdateIfStatus(ctx, rec.Id, rec.Status, patch)
	if err != nil {
		log.Error("Failed to finish record", "target", patch.Status, "error", err)
		return outcomeError
	}
	if !applied {
		// some other pass already transitioned this record
		log.Debug("Conditional update lost the race", "target", patch.Status)
		return outcomeConflict
	}
	log.Info("Record transitioned", "status", patch.Status)
	return success
}
