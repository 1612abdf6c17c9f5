package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/ledger"
	"github.com/tokendesk/tokendesk/internal/models"
	"github.com/tokendesk/tokendesk/internal/util"
)

// TokenHandler handles token issuance and listing endpoints.
type TokenHandler struct {
	engine *ledger.Engine
}

// NewTokenHandler constructs a TokenHandler.
func NewTokenHandler(engine *ledger.Engine) *TokenHandler {
	return &TokenHandler{engine: engine}
}

// generateTokensRequest defines the issuance request body.
type generateTokensRequest struct {
	Type        string  `json:"type"`
	ProductID   string  `json:"product_id"`
	USD         float64 `json:"usd"`
	Credits     float64 `json:"credits"`
	Mode        string  `json:"mode"`
	TokenCount  int     `json:"token_count"`
	PrefixMode  string  `json:"prefix_mode"`
	PrefixInput string  `json:"prefix_input"`
	Activated   bool    `json:"activated"`
}

// Generate issues a batch of tokens, charging the owner's balance.
func (h *TokenHandler) Generate(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body generateTokensRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errIssue := h.engine.Issue(c.Request.Context(), userID, ledger.IssueRequest{
		TokenType:   body.Type,
		ProductID:   body.ProductID,
		USD:         body.USD,
		Credits:     body.Credits,
		Mode:        body.Mode,
		TokenCount:  body.TokenCount,
		PrefixMode:  body.PrefixMode,
		PrefixInput: body.PrefixInput,
		Activated:   body.Activated,
	})
	if errIssue != nil {
		writeLedgerError(c, errIssue)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id":    result.TransactionID,
		"tokens":            result.TokenStrings,
		"token_count":       result.TokenCount,
		"credits_per_token": result.CreditsPerToken,
		"total_credits":     result.TotalCredits,
		"total_cost_usd":    result.TotalCostUSD,
		"fee_usd":           result.FeeUSD,
		"activated":         result.Activated,
		"mirror_synced":     result.MirrorSynced,
		"mirror_error":      result.MirrorError,
	})
}

// listTokensQuery defines query parameters for the owner's token list.
type listTokensQuery struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	Type   string `form:"type"`
	Reveal bool   `form:"reveal"`
	Search string `form:"search"`
}

// List returns the owner's tokens, newest first. Token strings are masked
// unless reveal=true.
func (h *TokenHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var q listTokensQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	db := h.engine.DB().WithContext(c.Request.Context())
	query := db.Model(&models.Token{}).Where("user_id = ?", userID)
	if q.Type == models.TokenTypeProduct || q.Type == models.TokenTypeMaster {
		query = query.Where("token_type = ?", q.Type)
	}
	if q.Search != "" {
		query = query.Where("token_string LIKE ?", "%"+q.Search+"%")
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.Token
	offset := (q.Page - 1) * q.Limit
	if errFind := query.Order("created_at DESC").Offset(offset).Limit(q.Limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list tokens failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		tokenString := row.TokenString
		if !q.Reveal {
			tokenString = util.MaskTokenKeepPrefix(tokenString)
		}
		out = append(out, gin.H{
			"id":          row.ID,
			"batch_tx_id": row.BatchTxID,
			"token":       tokenString,
			"token_type":  row.TokenType,
			"product_id":  row.ProductID,
			"credits":     row.Credits,
			"activated":   row.Activated,
			"locked":      row.Locked,
			"created_at":  row.CreatedAt,
			"updated_at":  row.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"tokens": out,
		"total":  total,
		"page":   q.Page,
		"limit":  q.Limit,
	})
}

// activateTokenRequest defines the activation request body.
type activateTokenRequest struct {
	Token string `json:"token"`
}

// Activate marks one of the owner's tokens as activated.
func (h *TokenHandler) Activate(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body activateTokenRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errActivate := h.engine.Activate(c.Request.Context(), userID, body.Token)
	if errActivate != nil {
		writeLedgerError(c, errActivate)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token_id":      result.TokenID,
		"activated":     result.Activated,
		"mirror_synced": result.MirrorSynced,
		"mirror_error":  result.MirrorError,
	})
}
