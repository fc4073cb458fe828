package adapter

import (
	"strings"
	"testing"

	"github.com/resumify/docflow/internal/domain/recordModel"
)

func TestToUploadResponse(t *testing.T) {
	rec := recordModel.DocumentRecord{
		Id:     "rec-1",
		Status: recordModel.StatusProcessing,
	}

	response := ToUploadResponse(rec)

	if response.Id != "rec-1" || response.Status != "PROCESSING" {
		t.Errorf("response = %+v", response)
	}
	// the URL must resolve from any page, not just the site root
	if response.StatusURL != "/documents/rec-1/status" {
		t.Errorf("StatusURL = %q, want /documents/rec-1/status", response.StatusURL)
	}
	if !strings.HasPrefix(response.StatusURL, "/") {
		t.Error("StatusURL must be rooted")
	}
}

func TestToStatusResponse(t *testing.T) {
	t.Run("Internal fields never leak", func(t *testing.T) {
		rec := recordModel.DocumentRecord{
			Id:             "rec-2",
			Status:         recordModel.StatusCompleted,
			FileName:       "resume.pdf",
			ExtractedText:  "hello",
			ExternalJobRef: "job-secret",
			ArtifactPath:   "/tmp/secret",
		}
		response := ToStatusResponse(rec)
		if response.Id != "rec-2" || response.ExtractedText != "hello" {
			t.Errorf("response = %+v", response)
		}
	})

	t.Run("Terminal errors carry the remediation hint", func(t *testing.T) {
		rec := recordModel.DocumentRecord{
			Id:     "rec-3",
			Status: recordModel.StatusFailed,
			ErrorInfo: &recordModel.ErrorInfo{
				Kind:    recordModel.ErrKindEmptyResult,
				Message: "no text could be extracted",
			},
		}
		response := ToStatusResponse(rec)
		if response.Error == nil {
			t.Fatal("expected an error payload")
		}
		if response.Error.Kind != string(recordModel.ErrKindEmptyResult) {
			t.Errorf("Kind = %s", response.Error.Kind)
		}
		if response.Error.Hint == "" {
			t.Error("terminal errors must include a hint")
		}
	})
}
