package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tokendesk/tokendesk/internal/models"
	"github.com/tokendesk/tokendesk/internal/security"
	"gorm.io/gorm"
)

// Issuance limits.
const (
	// MaxTokensPerBatch caps the number of tokens in one issuance request.
	MaxTokensPerBatch = 1000
	// MinDeclaredAmount is the minimum accepted USD or credit input per token.
	MinDeclaredAmount = 1
)

// Prefix selection modes.
const (
	// PrefixModeAuto generates a random four-character prefix.
	PrefixModeAuto = "auto"
	// PrefixModeCustom uses a caller-supplied prefix.
	PrefixModeCustom = "custom"
)

// IssueRequest describes one token-generation request: a batch of TokenCount
// tokens sharing configuration.
type IssueRequest struct {
	TokenType   string  // product | master
	ProductID   string  // required when TokenType is product
	USD         float64 // USD per token, used when Mode is usd
	Credits     float64 // credits per token, used when Mode is credits
	Mode        string  // usd | credits; master tokens are always usd
	TokenCount  int     // 1..1000
	PrefixMode  string  // auto | custom
	PrefixInput string  // custom prefix, ^[A-Za-z0-9]{1,4}$
	Activated   bool    // issue tokens pre-activated
}

// IssueResult reports a committed issuance batch.
type IssueResult struct {
	TransactionID   uint64
	TokenCount      int
	CreditsPerToken int64
	TotalCredits    int64
	TotalCostUSD    float64
	FeeUSD          float64
	Activated       bool
	TokenStrings    []string
	MirrorSynced    bool
	MirrorError     string
}

// Issue validates the request, charges the owner's balance, and writes the
// batch Transaction row plus its Token rows in a single database transaction.
// The total cost is computed server-side: per-unit USD equivalent times the
// token count, plus the fixed fee charged once per request. Mirror sync runs
// after commit and never invalidates the committed issuance.
func (e *Engine) Issue(ctx context.Context, userID uint64, req IssueRequest) (*IssueResult, error) {
	req.TokenType = strings.TrimSpace(req.TokenType)
	req.Mode = strings.TrimSpace(req.Mode)

	if req.TokenCount < 1 || req.TokenCount > MaxTokensPerBatch {
		return nil, validationErrorf("token count must be between 1 and %d", MaxTokensPerBatch)
	}

	switch req.TokenType {
	case models.TokenTypeProduct:
		if req.Mode != models.FundingModeUSD && req.Mode != models.FundingModeCredits {
			return nil, validationErrorf("mode must be usd or credits")
		}
	case models.TokenTypeMaster:
		// Master funding is always USD-denominated.
		req.Mode = models.FundingModeUSD
	default:
		return nil, validationErrorf("unknown token type %q", req.TokenType)
	}

	if req.Mode == models.FundingModeUSD && req.USD < MinDeclaredAmount {
		return nil, validationErrorf("usd amount must be at least %d", MinDeclaredAmount)
	}
	if req.Mode == models.FundingModeCredits && req.Credits < MinDeclaredAmount {
		return nil, validationErrorf("credits amount must be at least %d", MinDeclaredAmount)
	}

	prefix, errPrefix := e.resolvePrefix(req.PrefixMode, req.PrefixInput)
	if errPrefix != nil {
		return nil, errPrefix
	}

	release, errLock := e.lockOwner(ctx, ownerLockKey(userID))
	if errLock != nil {
		return nil, fmt.Errorf("%w: acquire owner lock: %v", ErrPersistence, errLock)
	}
	defer release()

	result := &IssueResult{TokenCount: req.TokenCount, FeeUSD: FixedFeeUSD, Activated: req.Activated}
	var mirrorTokens []MirrorToken

	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var productID *string
		valueLabel := "USD"
		var creditsPerToken int64
		var perUnitUSD float64

		switch req.TokenType {
		case models.TokenTypeProduct:
			product, errProduct := resolveProduct(ctx, tx, req.ProductID)
			if errProduct != nil {
				return errProduct
			}
			pid := product.ProductID
			productID = &pid
			valueLabel = fmt.Sprintf("%g", product.ValueCreditsUSD)

			if req.Mode == models.FundingModeUSD {
				creditsPerToken = FloorCredits(req.USD, product.ValueCreditsUSD)
				perUnitUSD = req.USD
			} else {
				creditsPerToken = FloorAmount(req.Credits)
				perUnitUSD = float64(creditsPerToken) * product.ValueCreditsUSD
			}
		case models.TokenTypeMaster:
			// Master credits are USD-pegged 1:1 at issuance.
			creditsPerToken = FloorCredits(req.USD, MasterCreditRateUSD)
			perUnitUSD = req.USD
		}

		if creditsPerToken < 1 {
			return fmt.Errorf("%w: conversion yields zero credits per token", ErrAmountTooSmall)
		}

		totalCredits := creditsPerToken * int64(req.TokenCount)
		totalCost := perUnitUSD*float64(req.TokenCount) + FixedFeeUSD

		balance, errBalance := Balance(ctx, tx, userID)
		if errBalance != nil {
			return errBalance
		}
		if totalCost > balance {
			return &InsufficientBalanceError{Balance: balance, Required: totalCost}
		}

		batchLabel, errLabel := e.rnd.AlphanumericString(10)
		if errLabel != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, errLabel)
		}

		batch := models.Transaction{
			UserID:          userID,
			ProductID:       productID,
			TokenType:       req.TokenType,
			BatchLabel:      fmt.Sprintf("BATCH-%dtokens-%s", req.TokenCount, batchLabel),
			Credits:         totalCredits,
			USDSpent:        totalCost,
			ValueLabel:      valueLabel,
			TokenCount:      req.TokenCount,
			Mode:            req.Mode,
			FeeUSD:          FixedFeeUSD,
			CreditsPerToken: creditsPerToken,
			Activated:       req.Activated,
		}
		if errCreate := tx.Create(&batch).Error; errCreate != nil {
			return fmt.Errorf("%w: create transaction: %v", ErrPersistence, errCreate)
		}

		tokens := make([]models.Token, 0, req.TokenCount)
		tokenStrings := make([]string, 0, req.TokenCount)
		for i := 0; i < req.TokenCount; i++ {
			var tokenString string
			var errString error
			if req.TokenType == models.TokenTypeProduct {
				tokenString, errString = security.ProductTokenString(e.rnd, prefix, creditsPerToken)
			} else {
				tokenString, errString = security.MasterTokenString(e.rnd, prefix, creditsPerToken)
			}
			if errString != nil {
				return fmt.Errorf("%w: %v", ErrPersistence, errString)
			}
			tokens = append(tokens, models.Token{
				BatchTxID:   batch.ID,
				UserID:      userID,
				ProductID:   productID,
				TokenString: tokenString,
				Credits:     creditsPerToken,
				TokenType:   req.TokenType,
				Activated:   req.Activated,
			})
			tokenStrings = append(tokenStrings, tokenString)
		}
		if errCreate := tx.Create(&tokens).Error; errCreate != nil {
			return fmt.Errorf("%w: create tokens: %v", ErrPersistence, errCreate)
		}

		result.TransactionID = batch.ID
		result.CreditsPerToken = creditsPerToken
		result.TotalCredits = totalCredits
		result.TotalCostUSD = totalCost
		result.TokenStrings = tokenStrings

		mirrorTokens = make([]MirrorToken, 0, len(tokens))
		for i := range tokens {
			mirrorTokens = append(mirrorTokens, MirrorToken{
				TokenString: tokens[i].TokenString,
				TokenType:   tokens[i].TokenType,
				Credits:     tokens[i].Credits,
				Activated:   tokens[i].Activated,
			})
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	result.MirrorSynced, result.MirrorError = e.pushMirror(ctx, mirrorTokens)

	log.WithFields(log.Fields{
		"user_id":        userID,
		"transaction_id": result.TransactionID,
		"token_count":    result.TokenCount,
		"total_cost_usd": result.TotalCostUSD,
	}).Info("issued token batch")

	return result, nil
}

// resolvePrefix validates or generates the token prefix before any write.
func (e *Engine) resolvePrefix(mode, input string) (string, error) {
	switch strings.TrimSpace(mode) {
	case PrefixModeAuto, "":
		prefix, err := e.rnd.AlphanumericString(security.TokenPrefixLength)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return prefix, nil
	case PrefixModeCustom:
		prefix := strings.TrimSpace(input)
		if !security.ValidCustomPrefix(prefix) {
			return "", validationErrorf("prefix must be 1-4 alphanumeric characters")
		}
		return prefix, nil
	default:
		return "", validationErrorf("unknown prefix mode %q", mode)
	}
}

// resolveProduct loads a catalog entry by hub product ID.
func resolveProduct(ctx context.Context, tx *gorm.DB, productID string) (*models.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, validationErrorf("product id is required for product tokens")
	}
	var product models.Product
	if errFind := tx.WithContext(ctx).Where("product_id = ?", productID).First(&product).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, productID)
		}
		return nil, fmt.Errorf("%w: load product: %v", ErrPersistence, errFind)
	}
	return &product, nil
}

// pushMirror replicates issued tokens to the hub, best effort.
func (e *Engine) pushMirror(ctx context.Context, tokens []MirrorToken) (bool, string) {
	if e.mirror == nil {
		return false, "mirror not configured"
	}
	if len(tokens) == 0 {
		return true, ""
	}
	if errPush := e.mirror.PushTokens(ctx, tokens); errPush != nil {
		log.WithError(errPush).Warn("mirror push failed")
		return false, errPush.Error()
	}
	return true, ""
}

// ownerLockKey builds the per-owner serialization key.
func ownerLockKey(userID uint64) string {
	return fmt.Sprintf("ledger:owner:%d", userID)
}
