package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Customer is a patient or buyer of the shop
type Customer struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TenantID    uint           `json:"tenant_id" gorm:"index;not null"`
	FirstName   string         `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName    string         `json:"last_name" gorm:"type:varchar(100);not null;index"`
	Email       string         `json:"email" gorm:"type:varchar(100)"`
	Phone       string         `json:"phone" gorm:"type:varchar(30)"`
	DateOfBirth *time.Time     `json:"date_of_birth,omitempty"`
	Address     string         `json:"address" gorm:"type:text"`
	Notes       string         `json:"notes" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// DisplayName renders the customer as "Last, First"
func (c Customer) DisplayName() string {
	return c.LastName + ", " + c.FirstName
}

// MatchesName reports whether query is a case-insensitive substring of the
// "Last, First" display name or of either name part.
func (c Customer) MatchesName(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.DisplayName()), q) ||
		strings.Contains(strings.ToLower(c.FirstName), q) ||
		strings.Contains(strings.ToLower(c.LastName), q)
}

// FilterCustomersByName keeps the customers matching query, preserving order
func FilterCustomersByName(customers []Customer, query string) []Customer {
	matched := make([]Customer, 0, len(customers))
	for _, c := range customers {
		if c.MatchesName(query) {
			matched = append(matched, c)
		}
	}
	return matched
}
