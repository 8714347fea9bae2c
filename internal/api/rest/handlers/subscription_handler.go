package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/internal/service"
	"github.com/subflo/subflo/pkg/logger"
)

// SubscriptionHandler serves the subscription endpoints
type SubscriptionHandler struct {
	service service.SubscriptionService
	log     *logger.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(svc service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: svc,
		log:     log,
	}
}

// ListSubscriptions returns the filtered list plus dashboard counts.
// ?q= matches platform, service or linked message sender; ?text= matches notes.
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	filter := domain.SubscriptionFilter{
		TextQuery:  c.Query("q"),
		NotesQuery: c.Query("text"),
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("Returned %d subscriptions", len(list.Subscriptions))
	c.JSON(http.StatusOK, list)
}

// GetSubscription returns one subscription by its numeric id
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	sub, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// CreateSubscription is the manual/demo creation path
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req domain.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid subscription request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("Created subscription %d (%s/%s)", sub.ID, sub.PlatformName, sub.ServiceName)
	c.JSON(http.StatusCreated, sub)
}

// CancelSubscription marks the subscription canceled
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	sub, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("Canceled subscription %d", id)
	c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.log.Warn("Invalid subscription id: %s", c.Param("id"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscription id must be an integer"})
		return 0, false
	}
	return id, true
}
