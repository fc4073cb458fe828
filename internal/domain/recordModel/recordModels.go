package recordModel

import (
	"context"
	"errors"
	"time"
)

type Status string
type SourceKind string
type ErrorKind string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusTimedOut   Status = "TIMED_OUT"

	SourceSynchronousText SourceKind = "SYNC_TEXT"
	SourceAsynchronousJob SourceKind = "ASYNC_JOB"

	ErrKindUnsupportedFormat   ErrorKind = "UNSUPPORTED_FORMAT"
	ErrKindInvalidJobReference ErrorKind = "INVALID_JOB_REFERENCE"
	ErrKindExternalService     ErrorKind = "EXTERNAL_SERVICE_ERROR"
	ErrKindTransientNetwork    ErrorKind = "TRANSIENT_NETWORK_ERROR"
	ErrKindTimeout             ErrorKind = "TIMEOUT"
	ErrKindEmptyResult         ErrorKind = "EMPTY_RESULT"
	ErrKindUnknown             ErrorKind = "UNKNOWN_ERROR"
)

// IsTerminal reports whether a record in this status may never change again
// (short of an explicit retry cycle).
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut
}

type ErrorInfo struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

// DocumentRecord is the persisted state machine tracking one ingested artifact.
// ArtifactPath and ExternalJobRef are internal; the adapter strips them before
// anything leaves the status endpoint.
type DocumentRecord struct {
	Id             string     `json:"id"`
	FileName       string     `json:"file_name"`
	Format         string     `json:"format"`
	SourceKind     SourceKind `json:"source_kind"`
	Status         Status     `json:"status"`
	ExternalJobRef string     `json:"external_job_ref,omitempty"`
	ArtifactPath   string     `json:"artifact_path,omitempty"`
	ArtifactSize   int64      `json:"artifact_size"`
	ExtractedText  string     `json:"extracted_text,omitempty"`
	ErrorInfo      *ErrorInfo `json:"error_info,omitempty"`
	AttemptCount   int        `json:"attempt_count"`
	CreatedAt      time.Time  `json:"created_at"`
	CycleStartedAt time.Time  `json:"cycle_started_at,omitzero"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CycleStart returns the instant the current attempt cycle began. The first
// cycle runs on CreatedAt; every explicit retry stamps a fresh start so the
// processing timeout is measured per cycle, not from the original upload.
func (r DocumentRecord) CycleStart() time.Time {
	if r.CycleStartedAt.IsZero() {
		return r.CreatedAt
	}
	return r.CycleStartedAt
}

// RecordPatch is the delta applied by a conditional update. Status is
// mandatory; the optional fields are write-once and only legal together with
// the matching terminal status.
type RecordPatch struct {
	Status         Status
	ExternalJobRef string
	ExtractedText  *string
	ErrorInfo      *ErrorInfo
	BumpAttempt    bool
}

var (
	ErrRecordExists   = errors.New("record already exists")
	ErrTerminalRecord = errors.New("record is terminal")
	ErrInvalidPatch   = errors.New("invalid record patch")
	ErrNotTerminal    = errors.New("record is not terminal")
)

// RecordStore is the only shared mutable resource in the system. All mutation
// goes through UpdateIfStatus, a compare-and-swap on Status; reads may be stale
// by up to one reconciliation interval and callers must tolerate that.
type RecordStore interface {
	CreateRecord(ctx context.Context, rec DocumentRecord) error
	GetRecord(ctx context.Context, id string) (DocumentRecord, bool)

	// UpdateIfStatus applies patch only when the stored status still equals
	// expected. A false return with nil error means another writer won the
	// race; the caller must abandon the record, not retry the write.
	UpdateIfStatus(ctx context.Context, id string, expected Status, patch RecordPatch) (bool, error)

	QueryByStatus(ctx context.Context, statuses []Status, kind SourceKind) ([]DocumentRecord, error)

	// ResetForRetry starts a new attempt cycle on a terminal record: terminal
	// fields cleared, attempt count incremented, status back to Pending.
	ResetForRetry(ctx context.Context, id string, expected Status) (DocumentRecord, bool, error)
}

// ApplyPatch enforces the write invariants shared by every store
// implementation: no mutation of terminal records, extracted text only on the
// transition into Completed, error info only into Failed/TimedOut, and each
// terminal field written at most once.
func ApplyPatch(rec DocumentRecord, patch RecordPatch, now time.Time) (DocumentRecord, error) {
	if rec.Status.IsTerminal() {
		return rec, ErrTerminalRecord
	}
	if patch.ExtractedText != nil && patch.Status != StatusCompleted {
		return rec, ErrInvalidPatch
	}
	if patch.ErrorInfo != nil && patch.Status != StatusFailed && patch.Status != StatusTimedOut {
		return rec, ErrInvalidPatch
	}
	if patch.Status == StatusCompleted && patch.ExtractedText == nil {
		return rec, ErrInvalidPatch
	}
	if (patch.Status == StatusFailed || patch.Status == StatusTimedOut) && patch.ErrorInfo == nil {
		return rec, ErrInvalidPatch
	}

	rec.Status = patch.Status
	if patch.ExternalJobRef != "" && rec.ExternalJobRef == "" {
		rec.ExternalJobRef = patch.ExternalJobRef
	}
	if patch.ExtractedText != nil {
		rec.ExtractedText = *patch.ExtractedText
	}
	if patch.ErrorInfo != nil {
		info := *patch.ErrorInfo
		rec.ErrorInfo = &info
	}
	if patch.BumpAttempt {
		rec.AttemptCount++
	}
	rec.UpdatedAt = now
	return rec, nil
}

// ResetRetryCycle is the shared implementation of an explicit retry. The
// caller has already verified the stored status equals expected.
func ResetRetryCycle(rec DocumentRecord, now time.Time) (DocumentRecord, error) {
	if !rec.Status.IsTerminal() {
		return rec, ErrNotTerminal
	}
	rec.Status = StatusPending
	rec.ExternalJobRef = ""
	rec.ExtractedText = ""
	rec.ErrorInfo = nil
	rec.AttemptCount++
	rec.CycleStartedAt = now
	rec.UpdatedAt = now
	return rec, nil
}
