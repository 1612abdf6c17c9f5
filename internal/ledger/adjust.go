package ledger

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tokendesk/tokendesk/internal/models"
)

// Adjust writes an admin_adjustment row for the given owner. The spend ledger
// is append-only: corrections never mutate existing rows. Adjustment rows
// carry positive or negative credits and always zero usd_spent, so they never
// move the USD balance.
func (e *Engine) Adjust(ctx context.Context, userID uint64, credits int64, label string) (*models.Transaction, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "Admin adjustment"
	}
	if credits == 0 {
		return nil, validationErrorf("adjustment credits must be non-zero")
	}

	adjustment := models.Transaction{
		UserID:     userID,
		TokenType:  models.TokenTypeAdminAdjustment,
		BatchLabel: label,
		Credits:    credits,
		USDSpent:   0,
		ValueLabel: label,
		TokenCount: 0,
		Mode:       models.FundingModeUSD,
		FeeUSD:     0,
	}
	if errCreate := e.db.WithContext(ctx).Create(&adjustment).Error; errCreate != nil {
		return nil, fmt.Errorf("%w: create adjustment: %v", ErrPersistence, errCreate)
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"credits": credits,
	}).Info("recorded admin adjustment")

	return &adjustment, nil
}
