package models

import "time"

// Token represents one issued credential. The token string is globally unique
// and immutable; credits change only through refills or hub-side consumption.
// Tokens are never deleted.
type Token struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	BatchTxID uint64       `gorm:"not null;index"`       // Owning issuance batch.
	BatchTx   *Transaction `gorm:"foreignKey:BatchTxID"` // Batch record.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"` // Associated user record.

	ProductID *string `gorm:"type:text;index"` // Product reference; nil for master tokens.

	TokenString string `gorm:"type:text;not null;uniqueIndex"` // Opaque bearer credential.
	Credits     int64  `gorm:"not null"`                       // Credits currently available.
	TokenType   string `gorm:"type:text;not null"`             // product | master.

	Activated bool `gorm:"not null;default:false"` // Refills require an activated token.
	Locked    bool `gorm:"not null;default:false"` // Locked tokens reject refills.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last credit or flag change.
}
