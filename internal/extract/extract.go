package extract

import (
	"fmt"
	"strings"

	"github.com/lu4p/cat"
	"github.com/resumify/docflow/internal/domain/recordModel"
	"github.com/resumify/docflow/pkg/logger_i"
)

var logger = logger_i.NewLogger("Extract")

// formats the in-process extractor handles without an OCR round trip
var synchronousFormats = map[string]struct{}{
	"txt":  {},
	"docx": {},
	"rtf":  {},
	"odt":  {},
}

// formats that need the asynchronous OCR job service
var asynchronousFormats = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"tiff": {},
}

// NormalizeFormat lowercases and trims the dot from a declared format or file
// extension.
func NormalizeFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
}

// Classify maps a declared format onto a source kind. The second return is
// false for formats the system does not accept at all.
func Classify(format string) (recordModel.SourceKind, bool) {
	f := NormalizeFormat(format)
	if _, ok := synchronousFormats[f]; ok {
		return recordModel.SourceSynchronousText, true
	}
	if _, ok := asynchronousFormats[f]; ok {
		return recordModel.SourceAsynchronousJob, true
	}
	return "", false
}

// Text runs the synchronous extractor over an artifact on disk. Only valid for
// formats classified SourceSynchronousText.
func Text(path string, format string) (string, error) {
	f := NormalizeFormat(format)
	if _, ok := synchronousFormats[f]; !ok {
		return "", fmt.Errorf("format %q is not synchronously extractable", format)
	}

	logger.Debug("extracting text", "path", path, "format", f)
	text, err := cat.File(path)
	if err != nil {
		logger.Error("Error extracting content from doc", "path", path, "error", err)
		return "", fmt.Errorf("failed to extract %s: %w", f, err)
	}
	return text, nil
}
