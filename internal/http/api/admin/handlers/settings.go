package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/settings"
	"gorm.io/gorm"
)

// SettingHandler manages site settings.
type SettingHandler struct {
	db *gorm.DB
}

// NewSettingHandler constructs a SettingHandler.
func NewSettingHandler(db *gorm.DB) *SettingHandler {
	return &SettingHandler{db: db}
}

// Get returns current site settings.
func (h *SettingHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"site_name":         settings.StringValue(settings.SiteNameKey, settings.DefaultSiteName),
		"last_product_sync": settings.StringValue(settings.LastProductSyncKey, ""),
		"updated_at":        settings.UpdatedAt(),
	})
}

// updateSettingsRequest defines the settings update body.
type updateSettingsRequest struct {
	SiteName string `json:"site_name"`
}

// Update persists site settings.
func (h *SettingHandler) Update(c *gin.Context) {
	var body updateSettingsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	siteName := strings.TrimSpace(body.SiteName)
	if siteName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing site_name"})
		return
	}

	if errSet := settings.Set(c.Request.Context(), h.db, settings.SiteNameKey, siteName); errSet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update settings failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"site_name": siteName})
}
