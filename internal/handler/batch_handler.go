package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tripwatch/tripwatch-api/internal/service"
	appErrors "github.com/tripwatch/tripwatch-api/pkg/errors"
	"github.com/tripwatch/tripwatch-api/pkg/response"
)

// BatchHandler exposes spreadsheet upload and batch management endpoints.
type BatchHandler struct {
	ingest      *service.IngestService
	maxFileSize int64
}

// NewBatchHandler constructs handler.
func NewBatchHandler(ingest *service.IngestService, maxFileSize int64) *BatchHandler {
	return &BatchHandler{ingest: ingest, maxFileSize: maxFileSize}
}

// Upload godoc
// @Summary Upload a trip spreadsheet
// @Tags Batches
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet (.xlsx, .xls or .csv)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /batches [post]
func (h *BatchHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "multipart field 'file' required"))
		return
	}
	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", h.maxFileSize)))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	result, err := h.ingest.Ingest(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List import batches
// @Tags Batches
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	batches, err := h.ingest.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, nil)
}

// Overview godoc
// @Summary Batch overview with stats and sample rows
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /batches/{id} [get]
func (h *BatchHandler) Overview(c *gin.Context) {
	overview, err := h.ingest.Overview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// Technicians godoc
// @Summary Technicians discovered in a batch
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /batches/{id}/technicians [get]
func (h *BatchHandler) Technicians(c *gin.Context) {
	technicians, err := h.ingest.Technicians(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, technicians, nil)
}

// Delete godoc
// @Summary Delete a batch and all derived data
// @Tags Batches
// @Param id path string true "Batch ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /batches/{id} [delete]
func (h *BatchHandler) Delete(c *gin.Context) {
	if err := h.ingest.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
