package models

import "time"

// RefillTransaction represents one refill operation against a single token.
// Rows are immutable once written; credits_after = credits_before + credits_added.
type RefillTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"` // Associated user record.

	TokenID     uint64 `gorm:"not null;index"`     // Target token ID.
	Token       *Token `gorm:"foreignKey:TokenID"` // Target token record.
	TokenString string `gorm:"type:text;not null"` // Token string at refill time.
	TokenType   string `gorm:"type:text;not null"` // product | master.

	RefillMode   string  `gorm:"type:text;not null"`           // usd | credits.
	RefillAmount float64 `gorm:"type:decimal(20,10);not null"` // Raw amount the user entered.
	CreditsAdded int64   `gorm:"not null"`                     // Credits added to the token.
	USDSpent     float64 `gorm:"type:decimal(20,10);not null"` // USD charged, fee included.
	FeeUSD       float64 `gorm:"type:decimal(20,10);not null"` // Fixed fee charged.

	CreditsBefore int64   `gorm:"not null"`                     // Token credits before the refill.
	CreditsAfter  int64   `gorm:"not null"`                     // Token credits after the refill.
	BalanceBefore float64 `gorm:"type:decimal(20,10);not null"` // Owner balance before the refill.
	BalanceAfter  float64 `gorm:"type:decimal(20,10);not null"` // Owner balance after the refill.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
