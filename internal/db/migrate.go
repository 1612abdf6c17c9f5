package db

import (
	"fmt"

	"github.com/tokendesk/tokendesk/internal/models"
	"gorm.io/gorm"
)

// Migrate runs schema migrations for all ledger models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.User{},
		&models.Admin{},
		&models.Payment{},
		&models.Transaction{},
		&models.Token{},
		&models.RefillTransaction{},
		&models.Product{},
		&models.Setting{},
	)
}
