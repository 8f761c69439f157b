package model

import (
	"time"

	"gorm.io/gorm"
)

// Tenant is one optical shop or clinic. Every business row carries its ID.
type Tenant struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Name          string         `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Slug          string         `json:"slug" gorm:"type:varchar(100);uniqueIndex"`
	Address       string         `json:"address" gorm:"type:text"`
	Phone         string         `json:"phone" gorm:"type:varchar(30)"`
	Email         string         `json:"email" gorm:"type:varchar(100)"`
	Currency      string         `json:"currency" gorm:"type:varchar(3);default:'USD'"`
	DefaultLocale string         `json:"default_locale" gorm:"type:varchar(10);default:'en'"`
	Active        bool           `json:"active" gorm:"default:true"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}
