package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tripwatch/tripwatch-api/internal/service"
	appErrors "github.com/tripwatch/tripwatch-api/pkg/errors"
	"github.com/tripwatch/tripwatch-api/pkg/response"
)

// AnalyticsHandler exposes batch analytics and duplicate management.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	dedup     *service.DedupService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService, dedup *service.DedupService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, dedup: dedup}
}

// resolveTechnician maps the optional ?technician= sheet number onto the
// stored technician id. An empty query means the whole batch.
func (h *AnalyticsHandler) resolveTechnician(c *gin.Context, batchID string) (string, bool) {
	raw := c.Query("technician")
	if raw == "" {
		return "", true
	}
	number, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "technician must be an integer"))
		return "", false
	}
	technician, err := h.analytics.ResolveTechnician(c.Request.Context(), batchID, number)
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return technician.ID, true
}

// Deduplicate godoc
// @Summary Re-run duplicate detection for a batch
// @Tags Analytics
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /batches/{id}/deduplicate [post]
func (h *AnalyticsHandler) Deduplicate(c *gin.Context) {
	flagged, err := h.dedup.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"flagged_count": flagged}, nil)
}

// Duplicates godoc
// @Summary Page through flagged duplicate records
// @Tags Analytics
// @Produce json
// @Param id path string true "Batch ID"
// @Param technician query int false "Technician sheet number"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /batches/{id}/duplicates [get]
func (h *AnalyticsHandler) Duplicates(c *gin.Context) {
	batchID := c.Param("id")
	technicianID, ok := h.resolveTechnician(c, batchID)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	records, err := h.analytics.DuplicateRecords(c.Request.Context(), batchID, technicianID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.analytics.DuplicateSummary(c.Request.Context(), batchID, technicianID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil, map[string]interface{}{"summary": summary})
}

// TripTypes godoc
// @Summary Event category distribution for a batch
// @Tags Analytics
// @Produce json
// @Param id path string true "Batch ID"
// @Param technician query int false "Technician sheet number"
// @Success 200 {object} response.Envelope
// @Router /batches/{id}/trip-types [get]
func (h *AnalyticsHandler) TripTypes(c *gin.Context) {
	batchID := c.Param("id")
	technicianID, ok := h.resolveTechnician(c, batchID)
	if !ok {
		return
	}
	shares, err := h.analytics.TripTypeDistribution(c.Request.Context(), batchID, technicianID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shares, nil)
}

// PunchHours godoc
// @Summary Punch-in counts per hour of day
// @Tags Analytics
// @Produce json
// @Param id path string true "Batch ID"
// @Param technician query int false "Technician sheet number"
// @Success 200 {object} response.Envelope
// @Router /batches/{id}/punch-hours [get]
func (h *AnalyticsHandler) PunchHours(c *gin.Context) {
	batchID := c.Param("id")
	technicianID, ok := h.resolveTechnician(c, batchID)
	if !ok {
		return
	}
	buckets, err := h.analytics.PunchHourHistogram(c.Request.Context(), batchID, technicianID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, buckets, nil)
}

// PunchPairs godoc
// @Summary Matched punch-in/punch-out pairs with shift statistics
// @Tags Analytics
// @Produce json
// @Param id path string true "Batch ID"
// @Param technician query int false "Technician sheet number"
// @Success 200 {object} response.Envelope
// @Router /batches/{id}/punch-pairs [get]
func (h *AnalyticsHandler) PunchPairs(c *gin.Context) {
	batchID := c.Param("id")
	technicianID, ok := h.resolveTechnician(c, batchID)
	if !ok {
		return
	}
	analysis, err := h.analytics.PunchPairing(c.Request.Context(), batchID, technicianID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analysis, nil)
}

// TechnicianSummary godoc
// @Summary Headline numbers for one technician
// @Tags Technicians
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id}/summary [get]
func (h *AnalyticsHandler) TechnicianSummary(c *gin.Context) {
	summary, err := h.analytics.TechnicianSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// PunchLog godoc
// @Summary Raw punch times grouped by calendar date
// @Tags Technicians
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id}/punch-log [get]
func (h *AnalyticsHandler) PunchLog(c *gin.Context) {
	logs, err := h.analytics.DailyPunchLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// Timeline godoc
// @Summary Chronological event list for one technician
// @Tags Technicians
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id}/timeline [get]
func (h *AnalyticsHandler) Timeline(c *gin.Context) {
	events, err := h.analytics.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}
