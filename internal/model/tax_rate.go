package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is a percentage applied to sales. At most one per tenant is the default.
type TaxRate struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	TenantID  uint            `json:"tenant_id" gorm:"index;not null"`
	Name      string          `json:"name" gorm:"type:varchar(100);not null"`
	Rate      decimal.Decimal `json:"rate" gorm:"type:numeric(6,3);not null"`
	IsDefault bool            `json:"is_default" gorm:"default:false;index"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
