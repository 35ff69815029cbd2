package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tripwatch/tripwatch-api/internal/dto"
	"github.com/tripwatch/tripwatch-api/internal/service"
	appErrors "github.com/tripwatch/tripwatch-api/pkg/errors"
	"github.com/tripwatch/tripwatch-api/pkg/response"
)

// DistanceHandler exposes distance computation and summaries.
type DistanceHandler struct {
	distances *service.DistanceService
}

// NewDistanceHandler constructs handler.
func NewDistanceHandler(distances *service.DistanceService) *DistanceHandler {
	return &DistanceHandler{distances: distances}
}

// Compute godoc
// @Summary Recompute travel distances for a batch, or one technician of it
// @Tags Distances
// @Produce json
// @Param id path string true "Batch ID"
// @Param technician query int false "Technician sheet number"
// @Success 200 {object} response.Envelope
// @Router /batches/{id}/distances [post]
func (h *DistanceHandler) Compute(c *gin.Context) {
	if raw := c.Query("technician"); raw != "" {
		number, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "technician must be an integer"))
			return
		}
		result, err := h.distances.ComputeForNumber(c.Request.Context(), c.Param("id"), number)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, []dto.DistanceResult{*result}, nil)
		return
	}
	results, err := h.distances.ComputeForBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Summary godoc
// @Summary Stored distance summaries for a batch
// @Tags Distances
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /batches/{id}/distances [get]
func (h *DistanceHandler) Summary(c *gin.Context) {
	summary, err := h.distances.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Download batch distances as CSV or PDF
// @Tags Distances
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Batch ID"
// @Param format query string false "Export format: csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /batches/{id}/distances/export [get]
func (h *DistanceHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	data, err := h.distances.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "text/csv"
	if format == "pdf" {
		contentType = "application/pdf"
	}
	filename := fmt.Sprintf("distances_%s.%s", c.Param("id"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// Locations godoc
// @Summary Ordered geotagged points of one technician
// @Tags Technicians
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id}/locations [get]
func (h *DistanceHandler) Locations(c *gin.Context) {
	locations, err := h.distances.Locations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, locations, nil)
}

// TechnicianDistance godoc
// @Summary Stored distance summary of one technician
// @Tags Technicians
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id}/distance [get]
func (h *DistanceHandler) TechnicianDistance(c *gin.Context) {
	summary, err := h.distances.TechnicianSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
