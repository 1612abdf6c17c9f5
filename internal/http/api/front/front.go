// Package front wires the user-facing HTTP API: authentication, balance,
// funding, token issuance, refills, and history listings.
package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/config"
	"github.com/tokendesk/tokendesk/internal/http/api/front/handlers"
	"github.com/tokendesk/tokendesk/internal/ledger"
	"github.com/tokendesk/tokendesk/internal/models"
	"github.com/tokendesk/tokendesk/internal/payments"
	"github.com/tokendesk/tokendesk/internal/security"
	"gorm.io/gorm"
)

// RegisterRoutes mounts the user-facing API under /api.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, engine *ledger.Engine, gateway *payments.Gateway, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg.JWT)
	balanceHandler := handlers.NewBalanceHandler(engine)
	paymentHandler := handlers.NewPaymentHandler(db, gateway)
	productHandler := handlers.NewProductHandler(db)
	tokenHandler := handlers.NewTokenHandler(engine)
	refillHandler := handlers.NewRefillHandler(engine)
	txHandler := handlers.NewTransactionHandler(db)

	api := r.Group("/api")

	public := api.Group("")
	{
		public.POST("/register", authHandler.Register)
		public.POST("/login", authHandler.Login)
		public.GET("/config", handlers.GetPublicConfig)
	}

	authed := api.Group("")
	authed.Use(userAuthMiddleware(db, cfg.JWT.Secret))
	{
		authed.GET("/balance", balanceHandler.Get)
		authed.POST("/payments", paymentHandler.Create)
		authed.GET("/payments", paymentHandler.List)
		authed.GET("/products", productHandler.List)
		authed.POST("/tokens/generate", tokenHandler.Generate)
		authed.GET("/tokens", tokenHandler.List)
		authed.POST("/tokens/activate", tokenHandler.Activate)
		authed.POST("/tokens/refill", refillHandler.Refill)
		authed.GET("/transactions", txHandler.List)
		authed.GET("/refills", txHandler.ListRefills)
	}
}

// userAuthMiddleware validates the bearer JWT, loads the user, and stores the
// user ID in context. Disabled users are rejected even with a valid token.
func userAuthMiddleware(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, errParse := security.ParseUserToken(secret, strings.TrimPrefix(header, "Bearer "))
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if user.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user disabled"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}
