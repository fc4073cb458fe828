package ocrjob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/resumify/docflow/internal/config"
	"github.com/resumify/docflow/internal/customHttpClient"
	"github.com/resumify/docflow/pkg/logger_i"
)

type submitResponse struct {
	JobId string `json:"job_id"`
}

type pollResponse struct {
	Status       string `json:"status"`
	Text         string `json:"text,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// HTTPClient talks to the remote OCR job service.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *logger_i.Logger
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    customHttpClient.New(config.OCRRequestTimeout),
		logger:  logger_i.NewLogger("OCR Client"),
	}
}

func (c *HTTPClient) Submit(ctx context.Context, artifactPath string, format string) (string, error) {
	file, err := os.Open(artifactPath)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer file.Close()

	// uploads are capped at 10mb, buffering the body in memory is fine
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("document", filepath.Base(artifactPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.WriteField("format", format); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("ocr submit: service returned %d", resp.StatusCode)
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("ocr submit: bad response body: %w", err)
	}
	c.logger.Debug("Submitted OCR job", "jobRef", sr.JobId)
	return sr.JobId, nil
}

func (c *HTTPClient) Poll(ctx context.Context, jobRef string) (PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+jobRef, nil)
	if err != nil {
		return PollResult{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return PollResult{}, fmt.Errorf("ocr poll: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// submission/visibility lag on the service side
		return PollResult{Status: StatusNotFound}, nil
	case resp.StatusCode == http.StatusGone:
		return PollResult{}, ErrInvalidJobRef
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return PollResult{}, fmt.Errorf("ocr poll: service returned %d", resp.StatusCode)
	}

	var pr pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return PollResult{}, fmt.Errorf("ocr poll: bad response body: %w", err)
	}
	return PollResult{
		Status:       JobStatus(pr.Status),
		Text:         pr.Text,
		ErrorKind:    pr.ErrorKind,
		ErrorMessage: pr.ErrorMessage,
	}, nil
}
