package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tokendesk/tokendesk/internal/models"
	"gorm.io/gorm"
)

// ActivateResult reports a committed activation.
type ActivateResult struct {
	TokenID      uint64
	TokenString  string
	Activated    bool
	MirrorSynced bool
	MirrorError  string
}

// Activate marks one of the owner's tokens as activated. Activation is free
// and idempotent; it unlocks refills against the token. Mirror sync runs after
// the local update and never invalidates it.
func (e *Engine) Activate(ctx context.Context, userID uint64, tokenString string) (*ActivateResult, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, validationErrorf("token string is required")
	}

	var token models.Token
	if errFind := e.db.WithContext(ctx).
		Where("token_string = ? AND user_id = ?", tokenString, userID).
		First(&token).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: token not found or not owned by user", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: load token: %v", ErrPersistence, errFind)
	}
	if token.Locked {
		return nil, ErrLocked
	}

	result := &ActivateResult{TokenID: token.ID, TokenString: token.TokenString, Activated: true}

	if !token.Activated {
		if errUpdate := e.db.WithContext(ctx).Model(&models.Token{}).
			Where("id = ?", token.ID).
			Update("activated", true).Error; errUpdate != nil {
			return nil, fmt.Errorf("%w: activate token: %v", ErrPersistence, errUpdate)
		}
	}

	result.MirrorSynced, result.MirrorError = e.mirrorActivation(ctx, token.TokenString, token.TokenType)

	log.WithFields(log.Fields{
		"user_id":  userID,
		"token_id": token.ID,
	}).Info("activated token")

	return result, nil
}

// mirrorActivation replicates the activation flag to the hub, best effort.
func (e *Engine) mirrorActivation(ctx context.Context, tokenString, tokenType string) (bool, string) {
	if e.mirror == nil {
		return false, "mirror not configured"
	}
	if errUpdate := e.mirror.UpdateActivation(ctx, tokenString, tokenType, true); errUpdate != nil {
		log.WithError(errUpdate).Warn("mirror activation update failed")
		return false, errUpdate.Error()
	}
	return true, ""
}
