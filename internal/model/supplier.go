package model

import (
	"time"

	"gorm.io/gorm"
)

// Supplier is a vendor purchase orders are placed with
type Supplier struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	TenantID      uint           `json:"tenant_id" gorm:"index;not null;uniqueIndex:idx_suppliers_tenant_code"`
	Name          string         `json:"name" gorm:"type:varchar(100);index;not null"`
	Code          string         `json:"code" gorm:"type:varchar(50);uniqueIndex:idx_suppliers_tenant_code"`
	ContactPerson string         `json:"contact_person" gorm:"type:varchar(100)"`
	Email         string         `json:"email" gorm:"type:varchar(100)"`
	Phone         string         `json:"phone" gorm:"type:varchar(30)"`
	Address       string         `json:"address" gorm:"type:text"`
	PaymentTerms  string         `json:"payment_terms" gorm:"type:varchar(100)"`
	IsActive      bool           `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}
