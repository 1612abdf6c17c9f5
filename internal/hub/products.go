package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tokendesk/tokendesk/internal/models"
	"gorm.io/gorm"
)

// hubProduct is the catalog entry shape exposed by the hub.
type hubProduct struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// SyncResult summarizes one catalog sync run.
type SyncResult struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// SyncProducts pulls visible products from the hub and upserts them into the
// local catalog. Local products are read-only outside this sync.
func (c *Client) SyncProducts(ctx context.Context, conn *gorm.DB) (*SyncResult, error) {
	remote, errFetch := c.fetchVisibleProducts(ctx)
	if errFetch != nil {
		return nil, errFetch
	}

	result := &SyncResult{Fetched: len(remote)}
	for _, item := range remote {
		productID := strings.TrimSpace(item.ID)
		if productID == "" {
			continue
		}

		var existing models.Product
		errFind := conn.WithContext(ctx).Where("product_id = ?", productID).First(&existing).Error
		switch {
		case errors.Is(errFind, gorm.ErrRecordNotFound):
			row := models.Product{
				ProductID:       productID,
				Name:            item.Name,
				ValueCreditsUSD: item.Value,
			}
			if errCreate := conn.WithContext(ctx).Create(&row).Error; errCreate != nil {
				return nil, fmt.Errorf("hub: create product %s: %w", productID, errCreate)
			}
			result.Created++
		case errFind != nil:
			return nil, fmt.Errorf("hub: load product %s: %w", productID, errFind)
		default:
			if existing.Name == item.Name && existing.ValueCreditsUSD == item.Value {
				continue
			}
			if errUpdate := conn.WithContext(ctx).Model(&existing).Updates(map[string]any{
				"name":              item.Name,
				"value_credits_usd": item.Value,
			}).Error; errUpdate != nil {
				return nil, fmt.Errorf("hub: update product %s: %w", productID, errUpdate)
			}
			result.Updated++
		}
	}

	log.WithFields(log.Fields{
		"fetched": result.Fetched,
		"created": result.Created,
		"updated": result.Updated,
	}).Info("synced product catalog")

	return result, nil
}

// fetchVisibleProducts loads the visible hub catalog.
func (c *Client) fetchVisibleProducts(ctx context.Context) ([]hubProduct, error) {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/rest/v1/products?visible=eq.true&select=id,name,value", nil)
	if errReq != nil {
		return nil, fmt.Errorf("hub: build products request: %w", errReq)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("hub: fetch products: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("hub: fetch products: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var products []hubProduct
	if errDecode := json.NewDecoder(resp.Body).Decode(&products); errDecode != nil {
		return nil, fmt.Errorf("hub: decode products: %w", errDecode)
	}
	return products, nil
}
