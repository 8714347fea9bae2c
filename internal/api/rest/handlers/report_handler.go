package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/subflo/subflo/internal/service"
	"github.com/subflo/subflo/pkg/logger"
)

// ReportHandler serves the JSON aggregate endpoints
type ReportHandler struct {
	service service.ReportService
	log     *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		log:     log,
	}
}

// GetOverview returns the headline aggregate counts
func (h *ReportHandler) GetOverview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetCostByPaymentMethod returns total spend grouped by payment method.
// Subscriptions without a recorded method form their own group.
func (h *ReportHandler) GetCostByPaymentMethod(c *gin.Context) {
	groups, err := h.service.CostByPaymentMethod(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}
