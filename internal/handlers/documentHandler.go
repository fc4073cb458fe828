package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/resumify/docflow/internal/adapter"
	"github.com/resumify/docflow/internal/adapter/utils"
	"github.com/resumify/docflow/internal/config"
	"github.com/resumify/docflow/internal/domain/recordModel"
	"github.com/resumify/docflow/internal/ingest"
	"github.com/resumify/docflow/pkg/logger_i"
)

// DocumentHandler owns the public document endpoints. It holds its
// collaborators directly so tests can hand it a fake store or coordinator.
type DocumentHandler struct {
	coordinator *ingest.Coordinator
	store       recordModel.RecordStore
	logger      *logger_i.Logger
}

func NewDocumentHandler(coordinator *ingest.Coordinator, store recordModel.RecordStore) *DocumentHandler {
	return &DocumentHandler{
		coordinator: coordinator,
		store:       store,
		logger:      logger_i.NewLogger("DocumentHandler"),
	}
}

// Upload godoc
//
//	@Summary		Ingest a document for text extraction
//	@Description	Accepts a multipart upload, stores the artifact and either extracts text inline or submits an OCR job. Always returns a record id to poll.
//	@Tags			documents
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			document	formData	file	true	"document to extract text from"
//	@Param			format		formData	string	false	"declared format, defaults to the file extension"
//	@Success		202	{object}	api.UploadResponse
//	@Failure		400	{object}	api.ErrorResponse
//	@Failure		413	{object}	api.ErrorResponse
//	@Failure		500	{object}	api.ErrorResponse
//	@Router			/documents [post]
func (h *DocumentHandler) Upload(writer http.ResponseWriter, request *http.Request) {
	if !validateContext(writer, request, h.logger) {
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, config.MaxUploadSize)
	if err := request.ParseMultipartForm(config.MaxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteErrorResponse(writer, http.StatusRequestEntityTooLarge, "document exceeds the 10MB upload limit", h.logger)
			return
		}
		h.logger.Warn("Malformed multipart upload", "error", err)
		WriteErrorResponse(writer, http.StatusBadRequest, "expected a multipart form with a 'document' field", h.logger)
		return
	}

	file, header, err := request.FormFile("document")
	if err != nil {
		WriteErrorResponse(writer, http.StatusBadRequest, "missing 'document' form field", h.logger)
		return
	}
	defer file.Close()

	format := request.FormValue("format")
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	}

	artifactPath, size, err := h.stageArtifact(file, header.Filename)
	if err != nil {
		h.logger.Error("Failed to stage uploaded artifact", "error", err)
		WriteErrorResponse(writer, http.StatusInternalServerError, "could not store the uploaded document", h.logger)
		return
	}

	rec, err := h.coordinator.Ingest(request.Context(), ingest.Artifact{
		Name:   header.Filename,
		Format: format,
		Path:   artifactPath,
		Size:   size,
	})
	if err != nil {
		h.logger.Error("Failed to persist document record", "error", err)
		WriteErrorResponse(writer, http.StatusInternalServerError, "could not record the document", h.logger)
		return
	}

	writeJsonResponse(writer, http.StatusAccepted, adapter.ToUploadResponse(rec), h.logger)
}

// stageArtifact copies the upload onto local disk so retries can re-dispatch
// the same bytes long after the request body is gone.
func (h *DocumentHandler) stageArtifact(file io.Reader, originalName string) (string, int64, error) {
	targetDirectory, err := getTargetDirectory()
	if err != nil {
		return "", 0, err
	}

	targetPath := filepath.Join(targetDirectory, stagedFileName(originalName))
	target, err := os.Create(targetPath)
	if err != nil {
		return "", 0, err
	}
	defer target.Close()

	size, err := io.Copy(target, file)
	if err != nil {
		os.Remove(targetPath)
		return "", 0, err
	}
	return targetPath, size, nil
}

// Status godoc
//
//	@Summary		Read the current status of a document
//	@Description	Returns the public view of the record: status, extracted text when completed, error details with a remediation hint when failed.
//	@Tags			documents
//	@Produce		json
//	@Param			id	path	string	true	"document record id"
//	@Success		200	{object}	api.StatusResponse
//	@Failure		404	{object}	api.ErrorResponse
//	@Router			/documents/{id}/status [get]
func (h *DocumentHandler) Status(writer http.ResponseWriter, request *http.Request) {
	if !validateContext(writer, request, h.logger) {
		return
	}

	id := utils.GetChiURLParam(request, "id")
	rec, found := h.store.GetRecord(request.Context(), id)
	if !found {
		WriteErrorResponse(writer, http.StatusNotFound, "no document with id "+id, h.logger)
		return
	}

	writeJsonResponse(writer, http.StatusOK, adapter.ToStatusResponse(rec), h.logger)
}

// Retry godoc
//
//	@Summary		Start a new extraction attempt on a terminal document
//	@Description	Resets a Completed, Failed or TimedOut record to Pending and re-dispatches the stored artifact. Conflicts with a concurrent retry return 409.
//	@Tags			documents
//	@Produce		json
//	@Param			id	path	string	true	"document record id"
//	@Success		202	{object}	api.StatusResponse
//	@Failure		404	{object}	api.ErrorResponse
//	@Failure		409	{object}	api.ErrorResponse
//	@Router			/documents/{id}/retry [post]
func (h *DocumentHandler) Retry(writer http.ResponseWriter, request *http.Request) {
	if !validateContext(writer, request, h.logger) {
		return
	}

	id := utils.GetChiURLParam(request, "id")
	rec, err := h.coordinator.Retry(request.Context(), id)
	switch {
	case errors.Is(err, ingest.ErrNotFound):
		WriteErrorResponse(writer, http.StatusNotFound, "no document with id "+id, h.logger)
		return
	case errors.Is(err, ingest.ErrNotTerminal):
		WriteErrorResponse(writer, http.StatusConflict, "document is still processing", h.logger)
		return
	case errors.Is(err, ingest.ErrRetryConflict):
		WriteErrorResponse(writer, http.StatusConflict, "document changed concurrently, try again", h.logger)
		return
	case err != nil:
		h.logger.Error("Retry failed", "recordId", id, "error", err)
		WriteErrorResponse(writer, http.StatusInternalServerError, "could not retry the document", h.logger)
		return
	}

	writeJsonResponse(writer, http.StatusAccepted, adapter.ToStatusResponse(rec), h.logger)
}
