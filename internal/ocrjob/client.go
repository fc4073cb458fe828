package ocrjob

import (
	"context"
	"errors"
)

type JobStatus string

const (
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusSucceeded  JobStatus = "SUCCEEDED"
	StatusFailed     JobStatus = "FAILED"
	// the service has accepted the submission but its polling API cannot see
	// the job yet; treated as transient, not as a failure
	StatusNotFound JobStatus = "NOT_FOUND"
)

// ErrInvalidJobRef means the service does not recognize the reference at all,
// e.g. the job expired. Distinct from StatusNotFound, which is the
// just-submitted window.
var ErrInvalidJobRef = errors.New("invalid job reference")

type PollResult struct {
	Status       JobStatus
	Text         string
	ErrorKind    string
	ErrorMessage string
}

// Client is the asynchronous text-extraction collaborator. Poll must be
// idempotent: reconciliation passes may overlap and each polls independently.
type Client interface {
	Submit(ctx context.Context, artifactPath string, format string) (jobRef string, err error)
	Poll(ctx context.Context, jobRef string) (PollResult, error)
}
