package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Purchase order statuses
const (
	PurchaseDraft     = "draft"
	PurchaseOrdered   = "ordered"
	PurchaseReceived  = "received"
	PurchaseCancelled = "cancelled"
)

// PurchaseOrder is stock ordered from a supplier
type PurchaseOrder struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	TenantID     uint            `json:"tenant_id" gorm:"index;not null"`
	SupplierID   uint            `json:"supplier_id" gorm:"index;not null"`
	Status       string          `json:"status" gorm:"type:varchar(20);not null;default:'draft';index"`
	OrderDate    time.Time       `json:"order_date"`
	ExpectedDate *time.Time      `json:"expected_date,omitempty"`
	ReceivedAt   *time.Time      `json:"received_at,omitempty"`
	Total        decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null;default:0"`
	Notes        string          `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `json:"-" gorm:"index"`

	Supplier *Supplier           `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Items    []PurchaseOrderItem `json:"items,omitempty" gorm:"foreignKey:PurchaseOrderID"`
}

// PurchaseOrderItem is one ordered product line
type PurchaseOrderItem struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	TenantID        uint            `json:"tenant_id" gorm:"index;not null"`
	PurchaseOrderID uint            `json:"purchase_order_id" gorm:"index;not null"`
	ProductID       uint            `json:"product_id" gorm:"index;not null"`
	Quantity        int             `json:"quantity" gorm:"not null"`
	UnitCost        decimal.Decimal `json:"unit_cost" gorm:"type:numeric(12,2);not null"`
	LineTotal       decimal.Decimal `json:"line_total" gorm:"type:numeric(12,2);not null"`
}

// PurchaseTransitions lists the statuses a purchase order may move to
var PurchaseTransitions = Transitions{
	PurchaseDraft:   {PurchaseOrdered, PurchaseCancelled},
	PurchaseOrdered: {PurchaseReceived, PurchaseCancelled},
}
