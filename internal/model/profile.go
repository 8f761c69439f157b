package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Role names
const (
	RoleAdmin       = "admin"
	RoleManager     = "manager"
	RoleOptometrist = "optometrist"
	RoleCashier     = "cashier"
)

// DefaultRoles are seeded by the migrate command
var DefaultRoles = []Role{
	{Name: RoleAdmin, Description: "Full access to the shop, its users and settings"},
	{Name: RoleManager, Description: "Inventory, purchasing, sales and reports"},
	{Name: RoleOptometrist, Description: "Customers, prescriptions, medical records and appointments"},
	{Name: RoleCashier, Description: "Point of sale and customers"},
}

// Role groups permissions for profiles
type Role struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(50);uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile is a user account. Superusers may have no tenant and can act on any tenant.
type Profile struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	TenantID     *uint          `json:"tenant_id" gorm:"index"`
	RoleID       uint           `json:"role_id" gorm:"index"`
	Email        string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	FullName     string         `json:"full_name" gorm:"type:varchar(150)"`
	PasswordHash string         `json:"-" gorm:"type:varchar(255);not null"`
	IsSuperuser  bool           `json:"is_superuser" gorm:"default:false"`
	Active       bool           `json:"active" gorm:"default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	Role   Role    `json:"role,omitempty" gorm:"foreignKey:RoleID"`
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

// SetPassword hashes and stores the plaintext password
func (p *Profile) SetPassword(plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether plaintext matches the stored hash
func (p *Profile) CheckPassword(plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(plaintext)) == nil
}
