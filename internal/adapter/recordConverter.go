package adapter

import (
	"fmt"

	"github.com/resumify/docflow/internal/api"
	"github.com/resumify/docflow/internal/domain/recordModel"
	"github.com/resumify/docflow/internal/faults"
)

func ToUploadResponse(rec recordModel.DocumentRecord) api.UploadResponse {
	return api.UploadResponse{
		Id:        rec.Id,
		Status:    string(rec.Status),
		StatusURL: fmt.Sprintf("/documents/%s/status", rec.Id),
	}
}

// ToStatusResponse converts a record into its public view, attaching the
// remediation hint for terminal errors.
func ToStatusResponse(rec recordModel.DocumentRecord) api.StatusResponse {
	var errorPtr *api.ErrorPayload
	if rec.ErrorInfo != nil {
		errorPtr = &api.ErrorPayload{
			Kind:      string(rec.ErrorInfo.Kind),
			Message:   rec.ErrorInfo.Message,
			Retryable: rec.ErrorInfo.Retryable,
			Hint:      faults.Hint(rec.ErrorInfo.Kind),
		}
	}

	return api.StatusResponse{
		Id:            rec.Id,
		Status:        string(rec.Status),
		FileName:      rec.FileName,
		ExtractedText: rec.ExtractedText,
		Error:         errorPtr,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func BadRequest(id string, message string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		Id:      id,
		Code:    code,
		Message: message,
	}
}
