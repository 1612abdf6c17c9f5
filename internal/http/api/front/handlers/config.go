package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/settings"
)

// GetPublicConfig returns public site configuration.
func GetPublicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"site_name": settings.StringValue(settings.SiteNameKey, settings.DefaultSiteName),
	})
}
