package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/database"

	"gorm.io/gorm"
)

var (
	ErrEmptyCart         = errors.New("cart has no line items")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemNotFound      = errors.New("inventory item not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// Decrement removes qty units from an inventory item of the tenant. The update
// is conditional so quantity never goes below zero; reaching zero marks the
// item sold.
func Decrement(ctx context.Context, db *gorm.DB, tenantID, itemID uint, qty int) (*model.InventoryItem, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	result := db.WithContext(ctx).
		Model(&model.InventoryItem{}).
		Scopes(database.TenantScope(tenantID)).
		Where("id = ? AND quantity >= ?", itemID, qty).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity - ?", qty),
			"status":   gorm.Expr("CASE WHEN quantity - ? = 0 THEN ? ELSE status END", qty, model.InventorySold),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("decrement inventory item %d: %w", itemID, result.Error)
	}

	var item model.InventoryItem
	err := db.WithContext(ctx).Scopes(database.TenantScope(tenantID)).First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reload inventory item %d: %w", itemID, err)
	}

	if result.RowsAffected == 0 {
		return &item, ErrInsufficientStock
	}
	return &item, nil
}
