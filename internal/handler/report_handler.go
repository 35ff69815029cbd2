package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tripwatch/tripwatch-api/internal/dto"
	"github.com/tripwatch/tripwatch-api/internal/models"
	"github.com/tripwatch/tripwatch-api/internal/service"
	appErrors "github.com/tripwatch/tripwatch-api/pkg/errors"
	"github.com/tripwatch/tripwatch-api/pkg/response"
)

// ReportHandler exposes report generation and retrieval.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Generate godoc
// @Summary Generate an activity report for one technician
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Technician ID"
// @Param request body dto.GenerateReportRequest true "Report options"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /technicians/{id}/reports [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be pdf or html"))
		return
	}
	result, err := h.reports.Generate(c.Request.Context(), c.Param("id"), models.ReportFormat(req.Format))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List generated reports for a batch
// @Tags Reports
// @Produce json
// @Param batch query string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	batchID := c.Query("batch")
	if batchID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "batch query parameter required"))
		return
	}
	reports, err := h.reports.ListByBatch(c.Request.Context(), batchID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// Download godoc
// @Summary Download a generated report file
// @Tags Reports
// @Produce application/octet-stream
// @Param id path string true "Report ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /reports/{id}/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	report, file, err := h.reports.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "text/html; charset=utf-8"
	if report.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", report.Filename),
	})
}

// Delete godoc
// @Summary Delete a generated report
// @Tags Reports
// @Param id path string true "Report ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [delete]
func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
