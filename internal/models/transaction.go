package models

import "time"

// Token type tags carried by Transaction and Token rows.
const (
	// TokenTypeProduct marks tokens denominated via a product's USD-per-credit rate.
	TokenTypeProduct = "product"
	// TokenTypeMaster marks USD-pegged tokens usable across products.
	TokenTypeMaster = "master"
	// TokenTypeAdminAdjustment marks admin balance corrections. Adjustment rows
	// carry zero usd_spent and positive or negative credits.
	TokenTypeAdminAdjustment = "admin_adjustment"
)

// Funding modes accepted by issuance and refill.
const (
	// FundingModeUSD denominates the entered amount in USD.
	FundingModeUSD = "usd"
	// FundingModeCredits denominates the entered amount in credits.
	FundingModeCredits = "credits"
)

// Transaction represents one issuance batch: a group of tokens generated from a
// single request, or an admin adjustment. The spend ledger is append-only;
// usd_spent is immutable once written and corrections happen via new
// admin_adjustment rows.
type Transaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"` // Associated user record.

	ProductID *string `gorm:"type:text;index"` // Product reference; nil for master tokens and adjustments.

	TokenType  string `gorm:"type:text;not null"` // product | master | admin_adjustment.
	BatchLabel string `gorm:"type:text;not null"` // Human-readable batch label.

	Credits         int64   `gorm:"not null"`                     // Total credits across the batch.
	USDSpent        float64 `gorm:"type:decimal(20,10);not null"` // USD charged, fee included. Immutable.
	ValueLabel      string  `gorm:"type:text"`                    // Per-unit credit value label ("USD" for master).
	TokenCount      int     `gorm:"not null"`                     // Number of tokens in the batch.
	Mode            string  `gorm:"type:text;not null"`           // Funding mode: usd | credits.
	FeeUSD          float64 `gorm:"type:decimal(20,10);not null"` // Fixed fee charged for the batch.
	CreditsPerToken int64   `gorm:"not null"`                     // Credits loaded on each token.

	Activated bool `gorm:"not null;default:false"` // Whether tokens were issued pre-activated.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
