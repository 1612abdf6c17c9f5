package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tokendesk/tokendesk/internal/hub"
	"github.com/tokendesk/tokendesk/internal/settings"
	"gorm.io/gorm"
)

// ProductHandler manages the local product catalog.
type ProductHandler struct {
	db  *gorm.DB
	hub *hub.Client
}

// NewProductHandler constructs an admin ProductHandler. hubClient may be nil
// when no hub is configured; sync then fails with 503.
func NewProductHandler(db *gorm.DB, hubClient *hub.Client) *ProductHandler {
	return &ProductHandler{db: db, hub: hubClient}
}

// Sync pulls the visible hub catalog into the local product table and records
// the sync timestamp.
func (h *ProductHandler) Sync(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "hub not configured"})
		return
	}

	result, errSync := h.hub.SyncProducts(c.Request.Context(), h.db)
	if errSync != nil {
		log.WithError(errSync).Error("product catalog sync failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "catalog sync failed"})
		return
	}

	if errSet := settings.Set(c.Request.Context(), h.db, settings.LastProductSyncKey, time.Now().UTC().Format(time.RFC3339)); errSet != nil {
		log.WithError(errSet).Warn("record product sync timestamp failed")
	}

	c.JSON(http.StatusOK, gin.H{
		"fetched": result.Fetched,
		"created": result.Created,
		"updated": result.Updated,
	})
}
