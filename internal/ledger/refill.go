package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tokendesk/tokendesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefillRequest describes one refill operation against an existing token.
type RefillRequest struct {
	TokenString string  // exact token string, scoped to the requesting owner
	Amount      float64 // raw amount the user entered
	Mode        string  // usd | credits
}

// RefillResult reports a committed refill.
type RefillResult struct {
	RefillTransactionID uint64
	CreditsAdded        int64
	USDSpent            float64
	FeeUSD              float64
	CreditsBefore       int64
	NewCredits          int64
	BalanceAfter        float64
	MirrorSynced        bool
	MirrorError         string
}

// Refill charges the owner's balance and adds credits to one of their tokens.
// The refill record and the token credit update execute in a single database
// transaction: the token row is locked FOR UPDATE and the credit update is
// guarded on the credits value read under the lock, so concurrent refills
// against the same token serialize instead of losing increments. Mirror sync
// runs after commit and never rolls back the local update.
func (e *Engine) Refill(ctx context.Context, userID uint64, req RefillRequest) (*RefillResult, error) {
	tokenString := strings.TrimSpace(req.TokenString)
	if tokenString == "" {
		return nil, validationErrorf("token string is required")
	}
	mode := strings.TrimSpace(req.Mode)
	if mode != models.FundingModeUSD && mode != models.FundingModeCredits {
		return nil, validationErrorf("mode must be usd or credits")
	}
	if req.Amount <= 0 {
		return nil, validationErrorf("refill amount must be greater than 0")
	}

	release, errLock := e.lockOwner(ctx, ownerLockKey(userID))
	if errLock != nil {
		return nil, fmt.Errorf("%w: acquire owner lock: %v", ErrPersistence, errLock)
	}
	defer release()

	result := &RefillResult{FeeUSD: FixedFeeUSD}
	var mirrorType string

	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var token models.Token
		if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_string = ? AND user_id = ?", tokenString, userID).
			First(&token).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: token not found or not owned by user", ErrNotFound)
			}
			return fmt.Errorf("%w: load token: %v", ErrPersistence, errFind)
		}

		if token.Locked {
			return ErrLocked
		}
		if !token.Activated {
			return ErrNotActivated
		}

		creditsToAdd, usdSpent, errPlan := planRefill(ctx, tx, &token, req.Amount, mode)
		if errPlan != nil {
			return errPlan
		}
		if creditsToAdd <= 0 {
			return fmt.Errorf("%w: amount too small to generate any credits", ErrAmountTooSmall)
		}

		balance, errBalance := Balance(ctx, tx, userID)
		if errBalance != nil {
			return errBalance
		}
		if usdSpent > balance {
			return &InsufficientBalanceError{Balance: balance, Required: usdSpent}
		}

		refill := models.RefillTransaction{
			UserID:        userID,
			TokenID:       token.ID,
			TokenString:   token.TokenString,
			TokenType:     token.TokenType,
			RefillMode:    mode,
			RefillAmount:  req.Amount,
			CreditsAdded:  creditsToAdd,
			USDSpent:      usdSpent,
			FeeUSD:        FixedFeeUSD,
			CreditsBefore: token.Credits,
			CreditsAfter:  token.Credits + creditsToAdd,
			BalanceBefore: balance,
			BalanceAfter:  balance - usdSpent,
		}
		if errCreate := tx.Create(&refill).Error; errCreate != nil {
			return fmt.Errorf("%w: create refill transaction: %v", ErrPersistence, errCreate)
		}

		// Guarded update: only applies if credits still match the value read
		// under the row lock.
		res := tx.Model(&models.Token{}).
			Where("id = ? AND credits = ?", token.ID, token.Credits).
			Update("credits", token.Credits+creditsToAdd)
		if res.Error != nil {
			return fmt.Errorf("%w: update token credits: %v", ErrPersistence, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: concurrent credit change detected", ErrPersistence)
		}

		result.RefillTransactionID = refill.ID
		result.CreditsAdded = creditsToAdd
		result.USDSpent = usdSpent
		result.CreditsBefore = token.Credits
		result.NewCredits = token.Credits + creditsToAdd
		result.BalanceAfter = balance - usdSpent
		mirrorType = token.TokenType
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	result.MirrorSynced, result.MirrorError = e.updateMirror(ctx, tokenString, mirrorType, result.NewCredits)

	log.WithFields(log.Fields{
		"user_id":       userID,
		"refill_id":     result.RefillTransactionID,
		"credits_added": result.CreditsAdded,
		"usd_spent":     result.USDSpent,
	}).Info("refilled token")

	return result, nil
}

// planRefill computes credits added and USD charged for one refill.
func planRefill(ctx context.Context, tx *gorm.DB, token *models.Token, amount float64, mode string) (int64, float64, error) {
	switch token.TokenType {
	case models.TokenTypeProduct:
		if token.ProductID == nil {
			return 0, 0, fmt.Errorf("%w: product reference missing on token", ErrNotFound)
		}
		product, errProduct := resolveProduct(ctx, tx, *token.ProductID)
		if errProduct != nil {
			return 0, 0, errProduct
		}
		rate := product.ValueCreditsUSD

		if mode == models.FundingModeCredits {
			credits := FloorAmount(amount)
			return credits, float64(credits)*rate + FixedFeeUSD, nil
		}
		available := amount - FixedFeeUSD
		if available <= 0 {
			return 0, 0, fmt.Errorf("%w: need more than $%.4f to cover the fee", ErrAmountTooSmall, FixedFeeUSD)
		}
		return FloorCredits(available, rate), amount, nil

	case models.TokenTypeMaster:
		if mode != models.FundingModeUSD {
			return 0, 0, fmt.Errorf("%w: master tokens only support usd refills", ErrUnsupportedMode)
		}
		available := amount - FixedFeeUSD
		if available <= 0 {
			return 0, 0, fmt.Errorf("%w: need more than $%.4f to cover the fee", ErrAmountTooSmall, FixedFeeUSD)
		}
		// 1 USD = 1 credit after fee deduction.
		return FloorCredits(available, MasterCreditRateUSD), amount, nil

	default:
		return 0, 0, validationErrorf("unknown token type %q", token.TokenType)
	}
}

// updateMirror replicates the new credit count to the hub, best effort.
func (e *Engine) updateMirror(ctx context.Context, tokenString, tokenType string, credits int64) (bool, string) {
	if e.mirror == nil {
		return false, "mirror not configured"
	}
	if errUpdate := e.mirror.UpdateCredits(ctx, tokenString, tokenType, credits); errUpdate != nil {
		log.WithError(errUpdate).Warn("mirror credit update failed")
		return false, errUpdate.Error()
	}
	return true, ""
}
