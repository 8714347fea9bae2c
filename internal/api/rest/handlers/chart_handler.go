package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/subflo/subflo/internal/charts"
	"github.com/subflo/subflo/internal/metrics"
	"github.com/subflo/subflo/internal/service"
	"github.com/subflo/subflo/pkg/logger"
)

// ChartHandler renders the report series as PNG images
type ChartHandler struct {
	service service.ReportService
	metrics metrics.TrackerMetrics
	log     *logger.Logger
}

// NewChartHandler creates a new chart handler
func NewChartHandler(svc service.ReportService, m metrics.TrackerMetrics, log *logger.Logger) *ChartHandler {
	return &ChartHandler{
		service: svc,
		metrics: m,
		log:     log,
	}
}

// PlatformDistribution renders the subscriptions-per-platform bar chart
func (h *ChartHandler) PlatformDistribution(c *gin.Context) {
	counts, sample, err := h.service.PlatformDistribution(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if len(counts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no subscription data to chart"})
		return
	}

	png, err := charts.RenderPlatformDistribution(counts, sample)
	if err != nil {
		h.log.Error("Failed to render platform chart: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chart rendering failed"})
		return
	}

	h.metrics.IncChartRendered("platforms")
	c.Data(http.StatusOK, "image/png", png)
}

// MonthlyCounts renders the subscriptions-per-month bar chart for the
// current year
func (h *ChartHandler) MonthlyCounts(c *gin.Context) {
	year := time.Now().Year()

	series, sample, err := h.service.MonthlyCounts(c.Request.Context(), year)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	png, err := charts.RenderMonthlyCounts(series, sample)
	if err != nil {
		h.log.Error("Failed to render monthly counts chart: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chart rendering failed"})
		return
	}

	h.metrics.IncChartRendered("monthly_counts")
	c.Data(http.StatusOK, "image/png", png)
}

// MonthlyCost renders the monthly spend bar chart for the current year
func (h *ChartHandler) MonthlyCost(c *gin.Context) {
	year := time.Now().Year()

	series, sample, err := h.service.MonthlyCost(c.Request.Context(), year)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	png, err := charts.RenderMonthlyCost(series, sample)
	if err != nil {
		h.log.Error("Failed to render monthly cost chart: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chart rendering failed"})
		return
	}

	h.metrics.IncChartRendered("monthly_cost")
	c.Data(http.StatusOK, "image/png", png)
}
