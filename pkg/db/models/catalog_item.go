package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/florelink/florelink-backend/pkg/types"
)

// CatalogItem represents a flower listing sold to wholesalers and florists.
type CatalogItem struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string            `gorm:"column:name;not null"`
	Category  *string           `gorm:"column:category"`
	Active    bool              `gorm:"column:active;not null;default:true"`
	InStock   bool              `gorm:"column:in_stock;not null;default:true"`
	Pricing   types.ItemPricing `gorm:"column:pricing;type:jsonb;serializer:json"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
