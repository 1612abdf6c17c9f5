package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/models"
	"gorm.io/gorm"
)

// TransactionHandler exposes the owner's spend history.
type TransactionHandler struct {
	db *gorm.DB
}

// NewTransactionHandler constructs a TransactionHandler.
func NewTransactionHandler(db *gorm.DB) *TransactionHandler {
	return &TransactionHandler{db: db}
}

// listHistoryQuery defines shared pagination parameters for history listings.
type listHistoryQuery struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

func (q *listHistoryQuery) clamp() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}
}

// List returns the owner's issuance batches and adjustments, newest first.
func (h *TransactionHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var q listHistoryQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	q.clamp()

	query := h.db.WithContext(c.Request.Context()).Model(&models.Transaction{}).Where("user_id = ?", userID)

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.Transaction
	offset := (q.Page - 1) * q.Limit
	if errFind := query.Order("created_at DESC").Offset(offset).Limit(q.Limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list transactions failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":                row.ID,
			"token_type":        row.TokenType,
			"product_id":        row.ProductID,
			"batch_label":       row.BatchLabel,
			"credits":           row.Credits,
			"usd_spent":         row.USDSpent,
			"value_label":       row.ValueLabel,
			"token_count":       row.TokenCount,
			"mode":              row.Mode,
			"fee_usd":           row.FeeUSD,
			"credits_per_token": row.CreditsPerToken,
			"activated":         row.Activated,
			"created_at":        row.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": out,
		"total":        total,
		"page":         q.Page,
		"limit":        q.Limit,
	})
}

// ListRefills returns the owner's refill history, newest first.
func (h *TransactionHandler) ListRefills(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var q listHistoryQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	q.clamp()

	query := h.db.WithContext(c.Request.Context()).Model(&models.RefillTransaction{}).Where("user_id = ?", userID)

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.RefillTransaction
	offset := (q.Page - 1) * q.Limit
	if errFind := query.Order("created_at DESC").Offset(offset).Limit(q.Limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list refills failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":             row.ID,
			"token_id":       row.TokenID,
			"token":          row.TokenString,
			"token_type":     row.TokenType,
			"refill_mode":    row.RefillMode,
			"refill_amount":  row.RefillAmount,
			"credits_added":  row.CreditsAdded,
			"usd_spent":      row.USDSpent,
			"fee_usd":        row.FeeUSD,
			"credits_before": row.CreditsBefore,
			"credits_after":  row.CreditsAfter,
			"balance_before": row.BalanceBefore,
			"balance_after":  row.BalanceAfter,
			"created_at":     row.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"refills": out,
		"total":   total,
		"page":    q.Page,
		"limit":   q.Limit,
	})
}
