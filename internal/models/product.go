package models

import "time"

// Product represents a catalog entry synced from the hub. Read-only from the
// ledger's perspective; mutated only by the catalog sync.
type Product struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ProductID string `gorm:"type:text;not null;uniqueIndex"` // Hub product identifier.
	Name      string `gorm:"type:text;not null"`             // Display name.

	ValueCreditsUSD float64 `gorm:"type:decimal(20,10);not null"` // USD cost of one credit.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last catalog sync touch.
}
