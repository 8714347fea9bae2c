package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/pkg/logger"
)

// respondError maps a domain error onto an HTTP status. Validation failures
// carry their field list; anything unrecognized becomes an opaque 500 so
// driver errors never leak to clients.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	var verr domain.ValidationErrors
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  verr.Error(),
			"fields": verr,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error("Request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
