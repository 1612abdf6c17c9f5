package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/models"
	"gorm.io/gorm"
)

// PaymentHandler handles tenant-wide payment listings.
type PaymentHandler struct {
	db *gorm.DB
}

// NewPaymentHandler constructs an admin PaymentHandler.
func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{db: db}
}

// listPaymentsQuery defines payment listing parameters.
type listPaymentsQuery struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	UserID uint64 `form:"user_id"`
	Status string `form:"status"`
}

// List returns payments across all users, newest first.
func (h *PaymentHandler) List(c *gin.Context) {
	var q listPaymentsQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.Payment{})
	if q.UserID != 0 {
		query = query.Where("user_id = ?", q.UserID)
	}
	if status := strings.TrimSpace(q.Status); status != "" {
		query = query.Where("status = ?", strings.ToLower(status))
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.Payment
	offset := (q.Page - 1) * q.Limit
	if errFind := query.Order("created_at DESC").Offset(offset).Limit(q.Limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list payments failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":            row.ID,
			"user_id":       row.UserID,
			"order_id":      row.OrderID,
			"invoice_id":    row.InvoiceID,
			"status":        row.Status,
			"amount_usd":    row.AmountUSD,
			"amount_crypto": row.AmountCrypto,
			"currency":      row.Currency,
			"pay_currency":  row.PayCurrency,
			"confirmed":     row.Confirmed(),
			"created_at":    row.CreatedAt,
			"updated_at":    row.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": out,
		"total":    total,
		"page":     q.Page,
		"limit":    q.Limit,
	})
}
