package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product categories
const (
	CategoryFrames        = "frames"
	CategoryLenses        = "lenses"
	CategoryContactLenses = "contact_lenses"
	CategoryAccessories   = "accessories"
	CategoryServices      = "services"
)

// Product is catalog master data; stock lives in InventoryItem rows
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	TenantID    uint            `json:"tenant_id" gorm:"index;not null;uniqueIndex:idx_products_tenant_sku"`
	Name        string          `json:"name" gorm:"type:varchar(255);not null"`
	SKU         string          `json:"sku" gorm:"type:varchar(100);not null;uniqueIndex:idx_products_tenant_sku"`
	Category    string          `json:"category" gorm:"type:varchar(30);index"`
	Brand       string          `json:"brand" gorm:"type:varchar(100)"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null;default:0"`
	Cost        decimal.Decimal `json:"cost" gorm:"type:numeric(12,2);not null;default:0"`
	Active      bool            `json:"active" gorm:"default:true"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}
