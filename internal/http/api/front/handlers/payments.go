package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tokendesk/tokendesk/internal/models"
	"github.com/tokendesk/tokendesk/internal/payments"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentHandler handles funding request and payment history endpoints.
type PaymentHandler struct {
	db      *gorm.DB
	gateway *payments.Gateway
}

// NewPaymentHandler constructs a PaymentHandler. gateway may be nil when the
// gateway is not configured; funding requests then fail with 503.
func NewPaymentHandler(db *gorm.DB, gateway *payments.Gateway) *PaymentHandler {
	return &PaymentHandler{db: db, gateway: gateway}
}

// createPaymentRequest defines the funding request body.
type createPaymentRequest struct {
	AmountUSD float64 `json:"amount_usd"`
}

// Create starts a funding request: creates a gateway payment and records a
// pending Payment row. The balance does not change until the gateway later
// confirms the payment through the IPN callback.
func (h *PaymentHandler) Create(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if h.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment gateway not configured"})
		return
	}

	var body createPaymentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.AmountUSD < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_usd must be at least 1"})
		return
	}

	// Order IDs embed the owner so IPN callbacks can attribute payments even
	// when the pending row is missing.
	orderID := fmt.Sprintf("%d_%d", userID, time.Now().UTC().UnixNano())

	invoice, errCreate := h.gateway.CreatePayment(c.Request.Context(), body.AmountUSD, orderID)
	if errCreate != nil {
		log.WithError(errCreate).Error("create gateway payment failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create payment"})
		return
	}

	amount := body.AmountUSD
	row := models.Payment{
		UserID:    userID,
		OrderID:   orderID,
		InvoiceID: invoice.PaymentID,
		Status:    "pending",
		AmountUSD: &amount,
		Currency:  "USD",
		Raw:       datatypes.JSON(invoice.Raw),
	}
	if errInsert := h.db.WithContext(c.Request.Context()).Create(&row).Error; errInsert != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record payment failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id":  invoice.PaymentID,
		"payment_url": invoice.PaymentURL,
		"order_id":    orderID,
	})
}

// listPaymentsQuery defines query parameters for payment history.
type listPaymentsQuery struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

// List returns the owner's payment history, newest first.
func (h *PaymentHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

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

	query := h.db.WithContext(c.Request.Context()).Model(&models.Payment{}).Where("user_id = ?", userID)

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
