package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/ledger"
)

// AdjustmentHandler records admin balance corrections.
type AdjustmentHandler struct {
	engine *ledger.Engine
}

// NewAdjustmentHandler constructs an AdjustmentHandler.
func NewAdjustmentHandler(engine *ledger.Engine) *AdjustmentHandler {
	return &AdjustmentHandler{engine: engine}
}

// adjustRequest defines the adjustment body. Corrections carry positive or
// negative credits; adjustment rows never touch usd_spent.
type adjustRequest struct {
	Credits int64  `json:"credits"`
	Label   string `json:"label"`
}

// Create appends an adjustment row to the user's spend ledger.
func (h *AdjustmentHandler) Create(c *gin.Context) {
	userID, errParse := parseIDParam(c)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var body adjustRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	adjustment, errAdjust := h.engine.Adjust(c.Request.Context(), userID, body.Credits, body.Label)
	if errAdjust != nil {
		if errors.Is(errAdjust, ledger.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errAdjust.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record adjustment failed"})
		return
	}

	balance, errBalance := h.engine.Balance(c.Request.Context(), userID)
	if errBalance != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "compute balance failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"adjustment_id": adjustment.ID,
		"credits":       adjustment.Credits,
		"label":         adjustment.BatchLabel,
		"balance_usd":   balance,
	})
}
