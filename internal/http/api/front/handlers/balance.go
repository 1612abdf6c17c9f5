package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/ledger"
)

// BalanceHandler exposes the owner's spendable balance.
type BalanceHandler struct {
	engine *ledger.Engine
}

// NewBalanceHandler constructs a BalanceHandler.
func NewBalanceHandler(engine *ledger.Engine) *BalanceHandler {
	return &BalanceHandler{engine: engine}
}

// Get returns the owner's current balance, recomputed from full history.
func (h *BalanceHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	balance, errBalance := h.engine.Balance(c.Request.Context(), userID)
	if errBalance != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "compute balance failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance_usd": balance})
}
