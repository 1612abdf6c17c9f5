// Package ipn receives payment gateway status notifications. The webhook is
// the only code path that moves a payment toward confirmed status, so its
// signature check gates every balance credit in the system.
package ipn

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tokendesk/tokendesk/internal/models"
	"github.com/tokendesk/tokendesk/internal/payments"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Handler processes gateway IPN callbacks.
type Handler struct {
	db        *gorm.DB
	ipnSecret string
}

// NewHandler constructs an IPN Handler.
func NewHandler(db *gorm.DB, ipnSecret string) *Handler {
	return &Handler{db: db, ipnSecret: ipnSecret}
}

// RegisterRoutes mounts the IPN webhook.
func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.POST("/api/ipn", h.Receive)
}

// Receive verifies the gateway signature over the raw body and upserts the
// payment row keyed by order_id. A signature mismatch changes no state.
func (h *Handler) Receive(c *gin.Context) {
	body, errRead := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}

	signature := c.GetHeader(payments.SignatureHeader)
	if !payments.VerifySignature(h.ipnSecret, body, signature) {
		log.Warn("ipn signature verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var payload payments.IPNPayload
	if errDecode := json.Unmarshal(body, &payload); errDecode != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	orderID := strings.TrimSpace(payload.OrderID)
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing order_id"})
		return
	}

	if errApply := h.apply(c, orderID, &payload, body); errApply != nil {
		log.WithError(errApply).WithField("order_id", orderID).Error("apply ipn failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update payment failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// apply updates the pending payment row, or creates one when the callback
// arrives for an order we have no record of. USD contribution comes from the
// gateway's fiat amount only when the fiat currency is USD.
func (h *Handler) apply(c *gin.Context, orderID string, payload *payments.IPNPayload, raw []byte) error {
	db := h.db.WithContext(c.Request.Context())

	updates := map[string]any{
		"status":        strings.TrimSpace(payload.PaymentStatus),
		"amount_crypto": payload.EffectivePaidAmount(),
		"currency":      payload.EffectivePriceCurrency(),
		"pay_currency":  payload.EffectivePayCurrency(),
		"raw":           datatypes.JSON(raw),
	}
	if invoiceID := payload.EffectiveInvoiceID(); invoiceID != "" {
		updates["invoice_id"] = invoiceID
	}
	if payload.EffectivePriceCurrency() == "USD" {
		amount := payload.EffectivePriceAmount()
		updates["amount_usd"] = &amount
	}

	var existing models.Payment
	errFind := db.Where("order_id = ?", orderID).First(&existing).Error
	if errFind == nil {
		return db.Model(&models.Payment{}).Where("id = ?", existing.ID).Updates(updates).Error
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return errFind
	}

	userID, errParse := userIDFromOrderID(orderID)
	if errParse != nil {
		return errParse
	}

	row := models.Payment{
		UserID:       userID,
		OrderID:      orderID,
		InvoiceID:    payload.EffectiveInvoiceID(),
		Status:       strings.TrimSpace(payload.PaymentStatus),
		AmountCrypto: payload.EffectivePaidAmount(),
		Currency:     payload.EffectivePriceCurrency(),
		PayCurrency:  payload.EffectivePayCurrency(),
		Raw:          datatypes.JSON(raw),
	}
	if row.Currency == "USD" {
		amount := payload.EffectivePriceAmount()
		row.AmountUSD = &amount
	}
	return db.Create(&row).Error
}

// userIDFromOrderID extracts the owner from the "{userID}_{nonce}" order format.
func userIDFromOrderID(orderID string) (uint64, error) {
	idx := strings.Index(orderID, "_")
	if idx <= 0 {
		return 0, errors.New("ipn: unrecognized order id format")
	}
	userID, errParse := strconv.ParseUint(orderID[:idx], 10, 64)
	if errParse != nil || userID == 0 {
		return 0, errors.New("ipn: unrecognized order id format")
	}
	return userID, nil
}
