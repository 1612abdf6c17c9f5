package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tokendesk/tokendesk/internal/models"
	"gorm.io/gorm"
)

// Setting keys and defaults.
const (
	// SiteNameKey is the key for the public site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback site name.
	DefaultSiteName = "TokenDesk"
	// LastProductSyncKey records the last catalog sync timestamp.
	LastProductSyncKey = "LAST_PRODUCT_SYNC"
)

// snapshot holds the in-memory settings values.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

// global stores the latest snapshot atomically.
var global atomic.Value // stores snapshot

func init() {
	global.Store(snapshot{values: map[string]json.RawMessage{}})
}

// Refresh reloads all settings rows and replaces the in-memory snapshot.
// Required at startup; Value returns empty results until the first refresh.
func Refresh(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return errors.New("settings: nil db")
	}

	var rows []models.Setting
	if errFind := conn.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = json.RawMessage(row.Value)
		if row.UpdatedAt.UTC().After(maxUpdatedAt) {
			maxUpdatedAt = row.UpdatedAt.UTC()
		}
	}

	global.Store(snapshot{updatedAt: maxUpdatedAt, values: values})
	return nil
}

// Set persists a setting and refreshes the snapshot.
func Set(ctx context.Context, conn *gorm.DB, key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("settings: empty key")
	}
	encoded, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return errMarshal
	}

	var existing models.Setting
	errFind := conn.WithContext(ctx).Where("key = ?", key).First(&existing).Error
	switch {
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		row := models.Setting{Key: key, Value: encoded}
		if errCreate := conn.WithContext(ctx).Create(&row).Error; errCreate != nil {
			return errCreate
		}
	case errFind != nil:
		return errFind
	default:
		if errUpdate := conn.WithContext(ctx).Model(&existing).Update("value", encoded).Error; errUpdate != nil {
			return errUpdate
		}
	}

	return Refresh(ctx, conn)
}

// Value returns a copy of the raw setting value for a key.
func Value(key string) (json.RawMessage, bool) {
	cfg := load()
	val, ok := cfg.values[strings.TrimSpace(key)]
	if !ok || val == nil {
		return nil, ok
	}
	copied := make([]byte, len(val))
	copy(copied, val)
	return copied, true
}

// StringValue returns a setting decoded as a string, or fallback.
func StringValue(key, fallback string) string {
	raw, ok := Value(key)
	if !ok {
		return fallback
	}
	var s string
	if errDecode := json.Unmarshal(raw, &s); errDecode != nil || strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// UpdatedAt returns the last update timestamp across all settings.
func UpdatedAt() time.Time {
	return load().updatedAt
}

// load returns the current snapshot with safe defaults.
func load() snapshot {
	v := global.Load()
	cfg, ok := v.(snapshot)
	if !ok || cfg.values == nil {
		return snapshot{values: map[string]json.RawMessage{}}
	}
	return cfg
}
