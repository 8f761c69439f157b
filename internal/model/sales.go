package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sales order statuses
const (
	SaleStatusPending   = "pending"
	SaleStatusCompleted = "completed"
	SaleStatusCancelled = "cancelled"
	SaleStatusReturned  = "returned"
)

// SaleTransitions lists the statuses a sales order may move to
var SaleTransitions = Transitions{
	SaleStatusPending:   {SaleStatusCompleted, SaleStatusCancelled},
	SaleStatusCompleted: {SaleStatusReturned, SaleStatusCancelled},
}

// Payment methods
const (
	PaymentCash      = "cash"
	PaymentCard      = "card"
	PaymentTransfer  = "transfer"
	PaymentInsurance = "insurance"
)

// SalesOrder is one point-of-sale transaction
type SalesOrder struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	TenantID   uint            `json:"tenant_id" gorm:"index;not null"`
	CustomerID *uint           `json:"customer_id" gorm:"index"`
	ProfileID  uint            `json:"profile_id" gorm:"index"`
	Status     string          `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Subtotal   decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null;default:0"`
	Discount   decimal.Decimal `json:"discount" gorm:"type:numeric(12,2);not null;default:0"`
	TaxRate    decimal.Decimal `json:"tax_rate" gorm:"type:numeric(6,3);not null;default:0"`
	Tax        decimal.Decimal `json:"tax" gorm:"type:numeric(12,2);not null;default:0"`
	Total      decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null;default:0"`
	Notes      string          `json:"notes" gorm:"type:text"`
	CreatedAt  time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `json:"-" gorm:"index"`

	Customer *Customer       `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Items    []SalesOrderItem `json:"items,omitempty" gorm:"foreignKey:SalesOrderID"`
	Payments []Payment        `json:"payments,omitempty" gorm:"foreignKey:SalesOrderID"`
}

// SalesOrderItem is one line of a sales order
type SalesOrderItem struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	TenantID        uint            `json:"tenant_id" gorm:"index;not null"`
	SalesOrderID    uint            `json:"sales_order_id" gorm:"index;not null"`
	InventoryItemID uint            `json:"inventory_item_id" gorm:"index"`
	ProductID       uint            `json:"product_id" gorm:"index"`
	Description     string          `json:"description" gorm:"type:varchar(255)"`
	Quantity        int             `json:"quantity" gorm:"not null;default:1"`
	UnitPrice       decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	LineTotal       decimal.Decimal `json:"line_total" gorm:"type:numeric(12,2);not null"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Payment records money received for a sales order
type Payment struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	TenantID     uint            `json:"tenant_id" gorm:"index;not null"`
	SalesOrderID uint            `json:"sales_order_id" gorm:"index;not null"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Method       string          `json:"method" gorm:"type:varchar(20);not null;default:'cash'"`
	Reference    string          `json:"reference" gorm:"type:varchar(100)"`
	PaidAt       time.Time       `json:"paid_at"`
	CreatedAt    time.Time       `json:"created_at"`
}
