package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/subflo/subflo/internal/service"
	"github.com/subflo/subflo/pkg/logger"
)

// EmailHandler serves the email message endpoints
type EmailHandler struct {
	service service.EmailService
	log     *logger.Logger
}

// NewEmailHandler creates a new email handler
func NewEmailHandler(svc service.EmailService, log *logger.Logger) *EmailHandler {
	return &EmailHandler{
		service: svc,
		log:     log,
	}
}

// GetEmailMessage returns one stored message by its source message id
func (h *EmailHandler) GetEmailMessage(c *gin.Context) {
	messageID := c.Param("message_id")

	detail, err := h.service.GetDetail(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// DeleteEmailMessage removes a stored message. Subscriptions that referenced
// it keep existing with the link cleared.
func (h *EmailHandler) DeleteEmailMessage(c *gin.Context) {
	messageID := c.Param("message_id")

	if err := h.service.Delete(c.Request.Context(), messageID); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("Deleted email message %s", messageID)
	c.Status(http.StatusNoContent)
}
