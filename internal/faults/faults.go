package faults

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/resumify/docflow/internal/domain/recordModel"
)

// Per-kind defaults: the user-facing message, whether the caller may retry by
// resubmitting, and the remediation hint surfaced next to terminal errors.
type kindProfile struct {
	message   string
	retryable bool
	hint      string
}

var profiles = map[recordModel.ErrorKind]kindProfile{
	recordModel.ErrKindUnsupportedFormat: {
		message:   "The document format is not supported.",
		retryable: false,
		hint:      "Please use PDF, DOCX, RTF, ODT or TXT format.",
	},
	recordModel.ErrKindInvalidJobReference: {
		message:   "Text extraction job expired or was invalid.",
		retryable: false,
		hint:      "Please upload the document again to restart the extraction process.",
	},
	recordModel.ErrKindExternalService: {
		message:   "The text extraction service is temporarily unavailable.",
		retryable: true,
		hint:      "This is usually temporary. Please try again in a few minutes.",
	},
	recordModel.ErrKindTransientNetwork: {
		message:   "Network connection error occurred during processing.",
		retryable: true,
		hint:      "Check your connection and try again.",
	},
	recordModel.ErrKindTimeout: {
		message:   "Text extraction timed out. The document may be too large or complex.",
		retryable: true,
		hint:      "Try uploading a smaller document or split large documents into smaller sections.",
	},
	recordModel.ErrKindEmptyResult: {
		message:   "No text content was found in the document.",
		retryable: false,
		hint:      "Ensure the document contains selectable text, not just images or scanned content.",
	},
	recordModel.ErrKindUnknown: {
		message:   "An unexpected error occurred during text extraction.",
		retryable: true,
		hint:      "Please try again or contact support if the problem persists.",
	},
}

// New builds a structured ErrorInfo for a known kind. The technical detail is
// appended after the user message so it survives into the record without
// replacing the friendly text.
func New(kind recordModel.ErrorKind, detail string) recordModel.ErrorInfo {
	p, ok := profiles[kind]
	if !ok {
		kind = recordModel.ErrKindUnknown
		p = profiles[kind]
	}
	msg := p.message
	if detail != "" {
		msg = msg + " (" + detail + ")"
	}
	return recordModel.ErrorInfo{Kind: kind, Message: msg, Retryable: p.retryable}
}

// Hint returns the remediation guidance the client shows next to a terminal
// error of this kind.
func Hint(kind recordModel.ErrorKind) string {
	if p, ok := profiles[kind]; ok {
		return p.hint
	}
	return profiles[recordModel.ErrKindUnknown].hint
}

// FromJobError translates an OCR job failure payload. A structured kind from
// the service always wins; message sniffing is only the fallback for legacy
// payloads that carry free text and nothing else.
func FromJobError(kind string, message string) recordModel.ErrorInfo {
	if kind != "" {
		if _, ok := profiles[recordModel.ErrorKind(kind)]; ok {
			return New(recordModel.ErrorKind(kind), message)
		}
	}
	return New(ClassifyMessage(message), message)
}

// ClassifyMessage maps an arbitrary upstream error string onto the closed
// taxonomy by substring inspection. This is a documented legacy fallback, not
// the primary classification path; keep new callers on structured kinds.
func ClassifyMessage(msg string) recordModel.ErrorKind {
	if msg == "" {
		return recordModel.ErrKindUnknown
	}
	lower := strings.ToLower(msg)

	switch {
	case contains(lower, "invalid job", "expired", "unknown job"):
		return recordModel.ErrKindInvalidJobReference
	case contains(lower, "timeout", "timed out", "deadline"):
		return recordModel.ErrKindTimeout
	case contains(lower, "unsupported", "format not supported"):
		return recordModel.ErrKindUnsupportedFormat
	case contains(lower, "empty", "no text"):
		return recordModel.ErrKindEmptyResult
	case contains(lower, "network", "connection", "unreachable"):
		return recordModel.ErrKindTransientNetwork
	case contains(lower, "unavailable", "service error", "internal error", "throttl"):
		return recordModel.ErrKindExternalService
	default:
		return recordModel.ErrKindUnknown
	}
}

func contains(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsTransient reports whether a poll error should leave the record Processing
// for the next pass instead of producing a terminal state. Transient faults
// are never persisted.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return ClassifyMessage(err.Error()) == recordModel.ErrKindTransientNetwork
}
