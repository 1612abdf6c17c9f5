package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tokendesk/tokendesk/internal/models"
	"gorm.io/gorm"
)

// ProductHandler exposes the read-only product catalog.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// List returns all catalog products.
func (h *ProductHandler) List(c *gin.Context) {
	var rows []models.Product
	if errFind := h.db.WithContext(c.Request.Context()).Order("name ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list products failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"product_id":        row.ProductID,
			"name":              row.Name,
			"value_credits_usd": row.ValueCreditsUSD,
		})
	}

	c.JSON(http.StatusOK, gin.H{"products": out})
}
