package recordModel

import (
	"errors"
	"testing"
	"time"
)

func TestStatus_IsTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusTimedOut}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing} {
		if s.IsTerminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
}

func TestApplyPatch_Invariants(t *testing.T) {
	now := time.Now().UTC()
	text := "some text"
	info := ErrorInfo{Kind: ErrKindUnknown, Message: "boom"}

	t.Run("Terminal records are immutable", func(t *testing.T) {
		rec := DocumentRecord{Id: "r", Status: StatusCompleted}
		_, err := ApplyPatch(rec, RecordPatch{Status: StatusFailed, ErrorInfo: &info}, now)
		if !errors.Is(err, ErrTerminalRecord) {
			t.Errorf("err = %v, want ErrTerminalRecord", err)
		}
	})

	t.Run("Completed requires text", func(t *testing.T) {
		rec := DocumentRecord{Id: "r", Status: StatusProcessing}
		if _, err := ApplyPatch(rec, RecordPatch{Status: StatusCompleted}, now); !errors.Is(err, ErrInvalidPatch) {
			t.Errorf("err = %v, want ErrInvalidPatch", err)
		}
	})

	t.Run("Text only travels with Completed", func(t *testing.T) {
		rec := DocumentRecord{Id: "r", Status: StatusProcessing}
		_, err := ApplyPatch(rec, RecordPatch{Status: StatusProcessing, ExtractedText: &text}, now)
		if !errors.Is(err, ErrInvalidPatch) {
			t.Errorf("err = %v, want ErrInvalidPatch", err)
		}
	})

	t.Run("Failure states require error info", func(t *testing.T) {
		rec := DocumentRecord{Id: "r", Status: StatusProcessing}
		for _, target := range []Status{StatusFailed, StatusTimedOut} {
			if _, err := ApplyPatch(rec, RecordPatch{Status: target}, now); !errors.Is(err, ErrInvalidPatch) {
				t.Errorf("target %s: err = %v, want ErrInvalidPatch", target, err)
			}
		}
	})

	t.Run("Error info only travels with failure states", func(t *testing.T) {
		rec := DocumentRecord{Id: "r", Status: StatusProcessing}
		_, err := ApplyPatch(rec, RecordPatch{Status: StatusCompleted, ExtractedText: &text, ErrorInfo: &info}, now)
		if !errors.Is(err, ErrInvalidPatch) {
			t.Errorf("err = %v, want ErrInvalidPatch", err)
		}
	})

	t.Run("Job reference is write-once", func(t *testing.T) {
		rec := DocumentRecord{Id: "r", Status: StatusProcessing, ExternalJobRef: "job-first"}
		next, err := ApplyPatch(rec, RecordPatch{Status: StatusProcessing, ExternalJobRef: "job-second"}, now)
		if err != nil {
			t.Fatalf("ApplyPatch failed: %v", err)
		}
		if next.ExternalJobRef != "job-first" {
			t.Errorf("ExternalJobRef = %q, the first reference must survive", next.ExternalJobRef)
		}
	})

	t.Run("Valid completion", func(t *testing.T) {
		rec := DocumentRecord{Id: "r", Status: StatusProcessing, AttemptCount: 3}
		next, err := ApplyPatch(rec, RecordPatch{Status: StatusCompleted, ExtractedText: &text}, now)
		if err != nil {
			t.Fatalf("ApplyPatch failed: %v", err)
		}
		if next.Status != StatusCompleted || next.ExtractedText != text {
			t.Errorf("next = %+v", next)
		}
		if !next.UpdatedAt.Equal(now) {
			t.Errorf("UpdatedAt = %v, want %v", next.UpdatedAt, now)
		}
		if next.AttemptCount != 3 {
			t.Errorf("AttemptCount = %d, completion must not bump it", next.AttemptCount)
		}
	})

	t.Run("BumpAttempt increments", func(t *testing.T) {
		rec := DocumentRecord{Id: "r", Status: StatusProcessing, AttemptCount: 3}
		next, err := ApplyPatch(rec, RecordPatch{Status: StatusProcessing, BumpAttempt: true}, now)
		if err != nil {
			t.Fatalf("ApplyPatch failed: %v", err)
		}
		if next.AttemptCount != 4 {
			t.Errorf("AttemptCount = %d, want 4", next.AttemptCount)
		}
	})
}

func TestResetRetryCycle(t *testing.T) {
	now := time.Now().UTC()
	info := ErrorInfo{Kind: ErrKindTimeout, Message: "too slow"}

	t.Run("Non-terminal records cannot reset", func(t *testing.T) {
		rec := DocumentRecord{Id: "r", Status: StatusProcessing}
		if _, err := ResetRetryCycle(rec, now); !errors.Is(err, ErrNotTerminal) {
			t.Errorf("err = %v, want ErrNotTerminal", err)
		}
	})

	t.Run("Terminal record starts a fresh cycle", func(t *testing.T) {
		rec := DocumentRecord{
			Id:             "r",
			Status:         StatusTimedOut,
			ExternalJobRef: "job-dead",
			ExtractedText:  "partial",
			ErrorInfo:      &info,
			AttemptCount:   2,
		}
		next, err := ResetRetryCycle(rec, now)
		if err != nil {
			t.Fatalf("ResetRetryCycle failed: %v", err)
		}
		if next.Status != StatusPending {
			t.Errorf("Status = %s, want PENDING", next.Status)
		}
		if next.ExternalJobRef != "" || next.ExtractedText != "" || next.ErrorInfo != nil {
			t.Errorf("stale terminal fields survived: %+v", next)
		}
		if next.AttemptCount != 3 {
			t.Errorf("AttemptCount = %d, want 3", next.AttemptCount)
		}
		if !next.CycleStartedAt.Equal(now) {
			t.Errorf("CycleStartedAt = %v, want %v", next.CycleStartedAt, now)
		}
	})
}

func TestCycleStart(t *testing.T) {
	created := time.Now().UTC().Add(-2 * time.Hour)
	retried := time.Now().UTC()

	rec := DocumentRecord{Id: "r", CreatedAt: created}
	if got := rec.CycleStart(); !got.Equal(created) {
		t.Errorf("first cycle start = %v, want CreatedAt %v", got, created)
	}

	rec.CycleStartedAt = retried
	if got := rec.CycleStart(); !got.Equal(retried) {
		t.Errorf("retried cycle start = %v, want %v", got, retried)
	}
}
