package model

import (
	"time"

	"gorm.io/gorm"
)

// Inventory statuses
const (
	InventoryAvailable = "available"
	InventorySold      = "sold"
	InventoryDamaged   = "damaged"
	InventoryReturned  = "returned"
)

// InventoryItem is a stock unit (or lot) of a product
type InventoryItem struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	TenantID     uint           `json:"tenant_id" gorm:"index;not null"`
	ProductID    uint           `json:"product_id" gorm:"index;not null"`
	SerialNumber string         `json:"serial_number" gorm:"type:varchar(100)"`
	Quantity     int            `json:"quantity" gorm:"not null;default:0;check:quantity >= 0"`
	Status       string         `json:"status" gorm:"type:varchar(20);not null;default:'available';index"`
	Location     string         `json:"location" gorm:"type:varchar(100)"`
	ReceivedAt   *time.Time     `json:"received_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
