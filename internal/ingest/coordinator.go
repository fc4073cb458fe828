package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/resumify/docflow/internal/adapter/utils"
	"github.com/resumify/docflow/internal/domain/recordModel"
	"github.com/resumify/docflow/internal/extract"
	"github.com/resumify/docflow/internal/faults"
	"github.com/resumify/docflow/internal/metrics"
	"github.com/resumify/docflow/internal/ocrjob"
	"github.com/resumify/docflow/pkg/logger_i"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrNotTerminal   = errors.New("document is still processing")
	ErrRetryConflict = errors.New("document changed concurrently, retry not applied")
)

// Artifact is one uploaded document as the handler hands it over: already on
// disk, format declared by the caller.
type Artifact struct {
	Name   string
	Format string
	Path   string
	Size   int64
}

// Coordinator classifies artifacts and creates exactly one record per upload.
// Synchronous formats are extracted inline and the record is born terminal;
// asynchronous formats are submitted to the OCR service first so a record is
// never left Pending without a job reference.
type Coordinator struct {
	store  recordModel.RecordStore
	jobs   ocrjob.Client
	logger *logger_i.Logger
	now    func() time.Time
}

func NewCoordinator(store recordModel.RecordStore, jobs ocrjob.Client) *Coordinator {
	return &Coordinator{
		store:  store,
		jobs:   jobs,
		logger: logger_i.NewLogger("Ingest"),
		now:    time.Now,
	}
}

func (c *Coordinator) Ingest(ctx context.Context, artifact Artifact) (recordModel.DocumentRecord, error) {
	now := c.now().UTC()
	rec := recordModel.DocumentRecord{
		Id:           utils.GetNewUUID(),
		FileName:     artifact.Name,
		Format:       extract.NormalizeFormat(artifact.Format),
		ArtifactPath: artifact.Path,
		ArtifactSize: artifact.Size,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	log := c.logger.With("recordId", rec.Id, "format", rec.Format)

	kind, supported := extract.Classify(artifact.Format)
	if !supported {
		rec.SourceKind = recordModel.SourceSynchronousText
		rec.Status = recordModel.StatusFailed
		info := faults.New(recordModel.ErrKindUnsupportedFormat, "format: "+rec.Format)
		rec.ErrorInfo = &info
		log.Warn("Rejected unsupported format")
		return rec, c.create(ctx, rec)
	}
	rec.SourceKind = kind

	switch kind {
	case recordModel.SourceSynchronousText:
		c.extractInline(&rec, log)
	case recordModel.SourceAsynchronousJob:
		c.submitJob(ctx, &rec, log)
	}

	return rec, c.create(ctx, rec)
}

func (c *Coordinator) extractInline(rec *recordModel.DocumentRecord, log *logger_i.Logger) {
	text, err := extract.Text(rec.ArtifactPath, rec.Format)
	if err != nil {
		rec.Status = recordModel.StatusFailed
		info := faults.FromJobError("", err.Error())
		rec.ErrorInfo = &info
		log.Error("Synchronous extraction failed", "error", err)
		return
	}
	if strings.TrimSpace(text) == "" {
		rec.Status = recordModel.StatusFailed
		info := faults.New(recordModel.ErrKindEmptyResult, "")
		rec.ErrorInfo = &info
		log.Warn("Synchronous extraction produced no text")
		return
	}
	rec.Status = recordModel.StatusCompleted
	rec.ExtractedText = text
	log.Info("Document extracted inline", "chars", len(text))
}

func (c *Coordinator) submitJob(ctx context.Context, rec *recordModel.DocumentRecord, log *logger_i.Logger) {
	jobRef, err := c.jobs.Submit(ctx, rec.ArtifactPath, rec.Format)
	if err != nil {
		// resubmission requires a fresh ingestion, so this one is not
		// retryable by a blind re-poll
		rec.Status = recordModel.StatusFailed
		info := faults.New(recordModel.ErrKindExternalService, err.Error())
		info.Retryable = false
		rec.ErrorInfo = &info
		log.Error("OCR job submission failed", "error", err)
		return
	}
	rec.Status = recordModel.StatusProcessing
	rec.ExternalJobRef = jobRef
	log.Info("OCR job submitted", "jobRef", jobRef)
}

func (c *Coordinator) create(ctx context.Context, rec recordModel.DocumentRecord) error {
	if err := c.store.CreateRecord(ctx, rec); err != nil {
		return err
	}
	metrics.CountIngested(string(rec.SourceKind))
	return nil
}

// Retry starts a new attempt cycle on a terminal record and re-dispatches the
// stored artifact. This is a full re-ingestion of the saved file, not a
// re-poll of the dead job reference.
func (c *Coordinator) Retry(ctx context.Context, id string) (recordModel.DocumentRecord, error) {
	current, found := c.store.GetRecord(ctx, id)
	if !found {
		return recordModel.DocumentRecord{}, ErrNotFound
	}
	if !current.Status.IsTerminal() {
		return recordModel.DocumentRecord{}, ErrNotTerminal
	}

	reset, applied, err := c.store.ResetForRetry(ctx, id, current.Status)
	if err != nil {
		return recordModel.DocumentRecord{}, err
	}
	if !applied {
		return recordModel.DocumentRecord{}, ErrRetryConflict
	}
	c.logger.Info("Retrying document", "recordId", id, "attempt", reset.AttemptCount)

	return c.redispatch(ctx, reset)
}

func (c *Coordinator) redispatch(ctx context.Context, rec recordModel.DocumentRecord) (recordModel.DocumentRecord, error) {
	log := c.logger.With("recordId", rec.Id, "format", rec.Format)

	switch rec.SourceKind {
	case recordModel.SourceAsynchronousJob:
		jobRef, err := c.jobs.Submit(ctx, rec.ArtifactPath, rec.Format)
		if err != nil {
			info := faults.New(recordModel.ErrKindExternalService, err.Error())
			info.Retryable = false
			log.Error("OCR job resubmission failed", "error", err)
			_, err := c.store.UpdateIfStatus(ctx, rec.Id, recordModel.StatusPending, recordModel.RecordPatch{
				Status:    recordModel.StatusFailed,
				ErrorInfo: &info,
			})
			if err != nil {
				return recordModel.DocumentRecord{}, err
			}
		} else {
			_, err := c.store.UpdateIfStatus(ctx, rec.Id, recordModel.StatusPending, recordModel.RecordPatch{
				Status:         recordModel.StatusProcessing,
				ExternalJobRef: jobRef,
			})
			if err != nil {
				return recordModel.DocumentRecord{}, err
			}
			log.Info("OCR job resubmitted", "jobRef", jobRef)
		}

	case recordModel.SourceSynchronousText:
		scratch := rec
		c.extractInline(&scratch, log)
		patch := recordModel.RecordPatch{Status: scratch.Status}
		if scratch.Status == recordModel.StatusCompleted {
			patch.ExtractedText = &scratch.ExtractedText
		} else {
			patch.ErrorInfo = scratch.ErrorInfo
		}
		if _, err := c.store.UpdateIfStatus(ctx, rec.Id, recordModel.StatusPending, patch); err != nil {
			return recordModel.DocumentRecord{}, err
		}
	}

	updated, _ := c.store.GetRecord(ctx, rec.Id)
	return updated, nil
}
