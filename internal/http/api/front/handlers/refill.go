package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/ledger"
)

// RefillHandler handles token refill endpoints.
type RefillHandler struct {
	engine *ledger.Engine
}

// NewRefillHandler constructs a RefillHandler.
func NewRefillHandler(engine *ledger.Engine) *RefillHandler {
	return &RefillHandler{engine: engine}
}

// refillRequest defines the refill request body.
type refillRequest struct {
	Token  string  `json:"token"`
	Amount float64 `json:"amount"`
	Mode   string  `json:"mode"`
}

// Refill adds credits to one of the owner's tokens, charging the balance.
func (h *RefillHandler) Refill(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body refillRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errRefill := h.engine.Refill(c.Request.Context(), userID, ledger.RefillRequest{
		TokenString: body.Token,
		Amount:      body.Amount,
		Mode:        body.Mode,
	})
	if errRefill != nil {
		writeLedgerError(c, errRefill)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refill_id":      result.RefillTransactionID,
		"credits_added":  result.CreditsAdded,
		"usd_spent":      result.USDSpent,
		"fee_usd":        result.FeeUSD,
		"credits_before": result.CreditsBefore,
		"new_credits":    result.NewCredits,
		"balance_after":  result.BalanceAfter,
		"mirror_synced":  result.MirrorSynced,
		"mirror_error":   result.MirrorError,
	})
}
