package ledger

import (
	"context"
	"fmt"

	"github.com/tokendesk/tokendesk/internal/models"
	"gorm.io/gorm"
)

// ComputeBalance derives the spendable USD balance from full payment and
// spend history. Only payments whose lower-cased status is one of
// {finished, confirmed, completed, paid} contribute; a missing USD amount
// counts as zero. Spends are the usd_spent sums of issuance transactions and
// refill transactions. The result is never negative.
func ComputeBalance(payments []models.Payment, spends []models.Transaction, refills []models.RefillTransaction) float64 {
	confirmed := 0.0
	for i := range payments {
		confirmed += payments[i].ConfirmedUSD()
	}

	spent := 0.0
	for i := range spends {
		spent += spends[i].USDSpent
	}
	for i := range refills {
		spent += refills[i].USDSpent
	}

	balance := confirmed - spent
	if balance < 0 {
		return 0
	}
	return balance
}

// Balance recomputes the owner's spendable balance from full history. No
// caching; every call reads the three record sets scoped to the owner.
func Balance(ctx context.Context, conn *gorm.DB, userID uint64) (float64, error) {
	var payments []models.Payment
	if errFind := conn.WithContext(ctx).
		Select("status", "amount_usd").
		Where("user_id = ?", userID).
		Find(&payments).Error; errFind != nil {
		return 0, fmt.Errorf("ledger: load payments: %w", errFind)
	}

	var spends []models.Transaction
	if errFind := conn.WithContext(ctx).
		Select("usd_spent").
		Where("user_id = ?", userID).
		Find(&spends).Error; errFind != nil {
		return 0, fmt.Errorf("ledger: load transactions: %w", errFind)
	}

	var refills []models.RefillTransaction
	if errFind := conn.WithContext(ctx).
		Select("usd_spent").
		Where("user_id = ?", userID).
		Find(&refills).Error; errFind != nil {
		return 0, fmt.Errorf("ledger: load refills: %w", errFind)
	}

	return ComputeBalance(payments, spends, refills), nil
}
