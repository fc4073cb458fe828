package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/resumify/docflow/internal/adapter"
	"github.com/resumify/docflow/pkg/logger_i"
)

func writeJsonResponse(writer http.ResponseWriter, statusCode int, payload any, logger *logger_i.Logger) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	if err := json.NewEncoder(writer).Encode(payload); err != nil {
		logger.Error("Failed to encode response payload", "error", err)
	}
}

// WriteErrorResponse emits the shared error envelope. Middleware uses it
// too, so it stays exported.
func WriteErrorResponse(writer http.ResponseWriter, statusCode int, message string, logger *logger_i.Logger) {
	writeJsonResponse(writer, statusCode, adapter.BadRequest("", message, statusCode), logger)
}

func validateContext(writer http.ResponseWriter, request *http.Request, logger *logger_i.Logger) bool {
	if err := request.Context().Err(); err != nil {
		logger.Warn("Request context already cancelled", "error", err)
		WriteErrorResponse(writer, http.StatusRequestTimeout, "request cancelled", logger)
		return false
	}
	return true
}

// getTargetDirectory resolves the upload staging directory, creating it on
// first use. Stored names carry a nanosecond prefix so concurrent uploads of
// the same file never collide.
func getTargetDirectory() (string, error) {
	targetDirectory := filepath.Join(os.TempDir(), "docflow-uploads")
	if err := os.MkdirAll(targetDirectory, 0o755); err != nil {
		return "", err
	}
	return targetDirectory, nil
}

func stagedFileName(originalName string) string {
	return strconv.FormatInt(time.Now().UnixNano(), 10) + "_" + filepath.Base(originalName)
}
