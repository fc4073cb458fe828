package api

import "time"

// StatusResponse is the public view of a document record. It deliberately
// carries no external job reference, attempt counter or storage path - those
// are backend internals the client must never depend on.
type StatusResponse struct {
	Id            string        `json:"id" example:"0b6f4a1e-9f2d-4c40-9b75-2b8b3f5d2d11"`
	Status        string        `json:"status" example:"PROCESSING"`
	FileName      string        `json:"file_name,omitempty" example:"resume.pdf"`
	ExtractedText string        `json:"extracted_text,omitempty"`
	Error         *ErrorPayload `json:"error,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type ErrorPayload struct {
	Kind      string `json:"kind" example:"EXTERNAL_SERVICE_ERROR"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable" example:"true"`
	Hint      string `json:"hint,omitempty"`
}

type UploadResponse struct {
	Id        string `json:"id"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
}

type ErrorResponse struct {
	Id      string `json:"id,omitempty"`
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"document not found"`
}
