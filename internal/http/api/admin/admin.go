// Package admin wires the operator-facing HTTP API: tenant-wide listings,
// balance adjustments, token lock controls, and catalog sync.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/config"
	"github.com/tokendesk/tokendesk/internal/http/api/admin/handlers"
	"github.com/tokendesk/tokendesk/internal/hub"
	"github.com/tokendesk/tokendesk/internal/ledger"
	"github.com/tokendesk/tokendesk/internal/models"
	"github.com/tokendesk/tokendesk/internal/security"
	"gorm.io/gorm"
)

// RegisterRoutes mounts the admin API under /api/admin.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, engine *ledger.Engine, hubClient *hub.Client, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg.JWT)
	userHandler := handlers.NewUserHandler(db, engine)
	adjustmentHandler := handlers.NewAdjustmentHandler(engine)
	tokenHandler := handlers.NewTokenHandler(db)
	productHandler := handlers.NewProductHandler(db, hubClient)
	paymentHandler := handlers.NewPaymentHandler(db)
	settingHandler := handlers.NewSettingHandler(db)

	api := r.Group("/api/admin")

	api.POST("/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(adminAuthMiddleware(db, cfg.JWT.Secret))
	{
		authed.GET("/users", userHandler.List)
		authed.GET("/users/:id", userHandler.Get)
		authed.POST("/users/:id/disable", userHandler.Disable)
		authed.POST("/users/:id/enable", userHandler.Enable)
		authed.POST("/users/:id/adjust", adjustmentHandler.Create)
		authed.GET("/tokens", tokenHandler.List)
		authed.POST("/tokens/:id/lock", tokenHandler.Lock)
		authed.POST("/tokens/:id/unlock", tokenHandler.Unlock)
		authed.GET("/payments", paymentHandler.List)
		authed.POST("/products/sync", productHandler.Sync)
		authed.GET("/settings", settingHandler.Get)
		authed.PUT("/settings", settingHandler.Update)
	}
}

// adminAuthMiddleware validates the bearer JWT against admin claims, loads the
// admin row, and stores the admin ID in context. User tokens signed with the
// same secret carry a different role claim and are rejected at parse time.
func adminAuthMiddleware(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, errParse := security.ParseAdminToken(secret, strings.TrimPrefix(header, "Bearer "))
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Next()
	}
}
