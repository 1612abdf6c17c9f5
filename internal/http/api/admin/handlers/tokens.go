package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/models"
	"gorm.io/gorm"
)

// TokenHandler handles tenant-wide token management.
type TokenHandler struct {
	db *gorm.DB
}

// NewTokenHandler constructs an admin TokenHandler.
func NewTokenHandler(db *gorm.DB) *TokenHandler {
	return &TokenHandler{db: db}
}

// listTokensQuery defines token listing parameters.
type listTokensQuery struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	UserID uint64 `form:"user_id"`
	Type   string `form:"type"`
	Search string `form:"search"`
}

// List returns tokens across all users, newest first. Admin listings show the
// full token string.
func (h *TokenHandler) List(c *gin.Context) {
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

	query := h.db.WithContext(c.Request.Context()).Model(&models.Token{})
	if q.UserID != 0 {
		query = query.Where("user_id = ?", q.UserID)
	}
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
		out = append(out, gin.H{
			"id":          row.ID,
			"user_id":     row.UserID,
			"batch_tx_id": row.BatchTxID,
			"token":       row.TokenString,
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

// Lock blocks refills against a token.
func (h *TokenHandler) Lock(c *gin.Context) {
	h.setLocked(c, true)
}

// Unlock restores refills against a previously locked token.
func (h *TokenHandler) Unlock(c *gin.Context) {
	h.setLocked(c, false)
}

func (h *TokenHandler) setLocked(c *gin.Context, locked bool) {
	tokenID, errParse := parseIDParam(c)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token id"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Token{}).
		Where("id = ?", tokenID).
		Update("locked", locked)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update token failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": tokenID, "locked": locked})
}
