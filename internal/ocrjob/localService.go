package ocrjob

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dslipak/pdf"
	"github.com/google/uuid"
	"github.com/resumify/docflow/internal/config"
	"github.com/resumify/docflow/internal/extract"
	"github.com/resumify/docflow/pkg/logger_i"
)

// LocalService is an in-process stand-in for the remote OCR job service, used
// in dev and CI when OCR_SERVICE_ADDR is unset. It runs jobs in background
// goroutines with an artificial latency so the Processing lifecycle is
// observable, and reads the PDF text layer where one exists. It cannot OCR
// scanned images.
type LocalService struct {
	mu      sync.RWMutex
	jobs    map[string]PollResult
	latency time.Duration
	logger  *logger_i.Logger
}

func NewLocalService() *LocalService {
	return &LocalService{
		jobs:    make(map[string]PollResult),
		latency: config.LocalOCRLatency,
		logger:  logger_i.NewLogger("Local OCR"),
	}
}

func (s *LocalService) Submit(ctx context.Context, artifactPath string, format string) (string, error) {
	jobRef := uuid.New().String()

	s.mu.Lock()
	s.jobs[jobRef] = PollResult{Status: StatusInProgress}
	s.mu.Unlock()

	go s.run(jobRef, artifactPath, format)
	s.logger.Debug("Accepted local OCR job", "jobRef", jobRef, "format", format)
	return jobRef, nil
}

func (s *LocalService) Poll(ctx context.Context, jobRef string) (PollResult, error) {
	s.mu.RLock()
	result, found := s.jobs[jobRef]
	s.mu.RUnlock()
	if !found {
		return PollResult{}, ErrInvalidJobRef
	}
	return result, nil
}

func (s *LocalService) run(jobRef string, artifactPath string, format string) {
	time.Sleep(s.latency)

	var result PollResult
	if extract.NormalizeFormat(format) == "pdf" {
		text, err := pdfTextLayer(artifactPath)
		if err != nil {
			result = PollResult{
				Status:       StatusFailed,
				ErrorKind:    "EXTERNAL_SERVICE_ERROR",
				ErrorMessage: err.Error(),
			}
		} else {
			// empty text is still SUCCEEDED; the reconciler decides what an
			// empty result means for the record
			result = PollResult{Status: StatusSucceeded, Text: text}
		}
	} else {
		result = PollResult{
			Status:       StatusFailed,
			ErrorKind:    "EXTERNAL_SERVICE_ERROR",
			ErrorMessage: "scanned image OCR requires the remote service",
		}
	}

	s.mu.Lock()
	s.jobs[jobRef] = result
	s.mu.Unlock()
	s.logger.Debug("Local OCR job finished", "jobRef", jobRef, "status", result.Status)
}

func pdfTextLayer(path string) (string, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return "", err
	}

	var pages []string
	numPages := f.NumPage()
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := protectExtract(page)
		if err != nil {
			// keep going, a single bad page should not sink the document
			continue
		}
		pages = append(pages, content)
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

// protectExtract guards against the parser hanging on malformed pages.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(time.Second * 10):
		return "", errors.New("timeout")
	}
}
