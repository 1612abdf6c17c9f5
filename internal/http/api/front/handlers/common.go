package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/ledger"
)

// getUserID extracts the user ID from gin context.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get("userID")
	if !exists {
		return 0
	}
	switch v := val.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case uint:
		return uint64(v)
	case int:
		return uint64(v)
	default:
		return 0
	}
}

// writeLedgerError maps ledger errors onto HTTP responses.
func writeLedgerError(c *gin.Context, err error) {
	var insufficient *ledger.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           "insufficient balance",
			"current_balance": insufficient.Balance,
			"required_amount": insufficient.Required,
		})
		return
	}

	switch {
	case errors.Is(err, ledger.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrLocked):
		c.JSON(http.StatusBadRequest, gin.H{"error": "token locked", "error_type": "locked"})
	case errors.Is(err, ledger.ErrNotActivated):
		c.JSON(http.StatusBadRequest, gin.H{"error": "activate the token first", "error_type": "not_activated"})
	case errors.Is(err, ledger.ErrUnsupportedMode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrAmountTooSmall):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
