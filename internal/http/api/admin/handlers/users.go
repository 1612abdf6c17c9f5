package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/db"
	"github.com/tokendesk/tokendesk/internal/ledger"
	"github.com/tokendesk/tokendesk/internal/models"
	"gorm.io/gorm"
)

// UserHandler handles tenant-wide user management.
type UserHandler struct {
	db     *gorm.DB
	engine *ledger.Engine
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(conn *gorm.DB, engine *ledger.Engine) *UserHandler {
	return &UserHandler{db: conn, engine: engine}
}

// listUsersQuery defines user listing parameters.
type listUsersQuery struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	Search string `form:"search"`
}

// List returns all users, newest first, with optional username search.
func (h *UserHandler) List(c *gin.Context) {
	var q listUsersQuery
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

	query := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if search := strings.TrimSpace(q.Search); search != "" {
		expr := db.CaseInsensitiveLikeExpr(h.db, "username")
		query = query.Where(expr, "%"+db.NormalizeLikePattern(h.db, search)+"%")
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.User
	offset := (q.Page - 1) * q.Limit
	if errFind := query.Order("created_at DESC").Offset(offset).Limit(q.Limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":         row.ID,
			"username":   row.Username,
			"email":      row.Email,
			"disabled":   row.Disabled,
			"created_at": row.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"users": out,
		"total": total,
		"page":  q.Page,
		"limit": q.Limit,
	})
}

// Get returns one user with their recomputed balance.
func (h *UserHandler) Get(c *gin.Context) {
	userID, errParse := parseIDParam(c)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	balance, errBalance := h.engine.Balance(c.Request.Context(), user.ID)
	if errBalance != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "compute balance failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"disabled":    user.Disabled,
		"balance_usd": balance,
		"created_at":  user.CreatedAt,
		"updated_at":  user.UpdatedAt,
	})
}

// Disable blocks a user from logging in and using the API.
func (h *UserHandler) Disable(c *gin.Context) {
	h.setDisabled(c, true)
}

// Enable restores a previously disabled user.
func (h *UserHandler) Enable(c *gin.Context) {
	h.setDisabled(c, false)
}

func (h *UserHandler) setDisabled(c *gin.Context, disabled bool) {
	userID, errParse := parseIDParam(c)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", userID).
		Update("disabled", disabled)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update user failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": userID, "disabled": disabled})
}

// parseIDParam parses the :id path parameter.
func parseIDParam(c *gin.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
