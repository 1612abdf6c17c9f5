package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Payment statuses reported by the gateway that count toward spendable balance.
// Matching is case-insensitive; anything else contributes nothing.
var confirmedPaymentStatuses = map[string]struct{}{
	"finished":  {},
	"confirmed": {},
	"completed": {},
	"paid":      {},
}

// Payment represents one funding attempt. Rows are created in "pending" status
// when an invoice is requested and mutated in place by gateway notifications.
// They are never deleted.
type Payment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"` // Associated user record.

	OrderID   string `gorm:"type:text;not null;uniqueIndex"` // Order identifier sent to the gateway.
	InvoiceID string `gorm:"type:text"`                      // External invoice/payment identifier.

	Status       string         `gorm:"type:text;not null"`  // Free-text gateway status.
	AmountUSD    *float64       `gorm:"type:decimal(20,10)"` // USD amount; nil for non-USD flows.
	AmountCrypto float64        `gorm:"type:decimal(30,18)"` // Actually paid crypto amount.
	Currency     string         `gorm:"type:text;not null"`  // Price currency code, upper-cased.
	PayCurrency  string         `gorm:"type:text"`           // Crypto currency code, lower-cased.
	Raw          datatypes.JSON `gorm:"type:json"`           // Raw gateway payload as received.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last gateway update.
}

// Confirmed reports whether the payment counts toward spendable balance.
func (p *Payment) Confirmed() bool {
	_, ok := confirmedPaymentStatuses[strings.ToLower(strings.TrimSpace(p.Status))]
	return ok
}

// ConfirmedUSD returns the USD amount contributed to the balance, treating a
// missing amount as zero.
func (p *Payment) ConfirmedUSD() float64 {
	if !p.Confirmed() || p.AmountUSD == nil {
		return 0
	}
	return *p.AmountUSD
}
