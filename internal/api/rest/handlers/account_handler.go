package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/internal/service"
	"github.com/subflo/subflo/pkg/logger"
)

// AccountHandler serves the account endpoints
type AccountHandler struct {
	service       service.AccountService
	subscriptions service.SubscriptionService
	log           *logger.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(svc service.AccountService, subs service.SubscriptionService, log *logger.Logger) *AccountHandler {
	return &AccountHandler{
		service:       svc,
		subscriptions: subs,
		log:           log,
	}
}

// CreateAccount registers a new account with its profile
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req domain.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid account request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("Created account %s (%s)", account.ID, account.Username)
	c.JSON(http.StatusCreated, account)
}

// VerifyAccount answers whether the account in ?user_id= exists
func (h *AccountHandler) VerifyAccount(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query parameter is required"})
		return
	}

	exists, err := h.service.Verify(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"exists": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": true})
}

// GetAccount returns the account and profile detail
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id := c.Param("id")

	detail, err := h.service.GetDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetActiveSubscriptions returns the account's live subscriptions
func (h *AccountHandler) GetActiveSubscriptions(c *gin.Context) {
	id := c.Param("id")

	subs, err := h.subscriptions.ListActive(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("Returned %d active subscriptions for account %s", len(subs), id)
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

type emailAccessRequest struct {
	Granted bool `json:"granted"`
}

// SetEmailAccess toggles the profile's email access flag
func (h *AccountHandler) SetEmailAccess(c *gin.Context) {
	id := c.Param("id")

	var req emailAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid email access request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetEmailAccess(c.Request.Context(), id, req.Granted); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": id, "email_access_granted": req.Granted})
}

// DeleteAccount removes the account and everything it owns
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	id := c.Param("id")

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("Deleted account %s", id)
	c.Status(http.StatusNoContent)
}
