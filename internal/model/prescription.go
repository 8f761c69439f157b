package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Prescription holds a refraction for both eyes. OD is the right eye, OS the left.
type Prescription struct {
	ID                uint                `json:"id" gorm:"primaryKey"`
	TenantID          uint                `json:"tenant_id" gorm:"index;not null"`
	CustomerID        uint                `json:"customer_id" gorm:"index;not null"`
	Prescriber        string              `json:"prescriber" gorm:"type:varchar(150)"`
	IssuedAt          time.Time           `json:"issued_at"`
	ExpiresAt         *time.Time          `json:"expires_at,omitempty"`
	ODSphere          decimal.NullDecimal `json:"od_sphere" gorm:"type:numeric(5,2)"`
	ODCylinder        decimal.NullDecimal `json:"od_cylinder" gorm:"type:numeric(5,2)"`
	ODAxis            *int                `json:"od_axis"`
	ODAdd             decimal.NullDecimal `json:"od_add" gorm:"type:numeric(4,2)"`
	OSSphere          decimal.NullDecimal `json:"os_sphere" gorm:"type:numeric(5,2)"`
	OSCylinder        decimal.NullDecimal `json:"os_cylinder" gorm:"type:numeric(5,2)"`
	OSAxis            *int                `json:"os_axis"`
	OSAdd             decimal.NullDecimal `json:"os_add" gorm:"type:numeric(4,2)"`
	PupillaryDistance decimal.NullDecimal `json:"pupillary_distance" gorm:"type:numeric(4,1)"`
	Notes             string              `json:"notes" gorm:"type:text"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	DeletedAt         gorm.DeletedAt      `json:"-" gorm:"index"`
}

// Expired reports whether the prescription is past its expiry at t
func (p Prescription) Expired(t time.Time) bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(t)
}

// MedicalRecord is the clinical note of one visit
type MedicalRecord struct {
	ID             uint                `json:"id" gorm:"primaryKey"`
	TenantID       uint                `json:"tenant_id" gorm:"index;not null"`
	CustomerID     uint                `json:"customer_id" gorm:"index;not null"`
	ProfileID      uint                `json:"profile_id" gorm:"index"`
	VisitDate      time.Time           `json:"visit_date"`
	ChiefComplaint string              `json:"chief_complaint" gorm:"type:text"`
	Diagnosis      string              `json:"diagnosis" gorm:"type:text"`
	IOPRight       decimal.NullDecimal `json:"iop_right" gorm:"type:numeric(4,1)"`
	IOPLeft        decimal.NullDecimal `json:"iop_left" gorm:"type:numeric(4,1)"`
	Notes          string              `json:"notes" gorm:"type:text"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	DeletedAt      gorm.DeletedAt      `json:"-" gorm:"index"`
}
