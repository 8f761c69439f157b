package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/checkout"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InventoryItemRequest defines the structure for inventory creation/update requests
type InventoryItemRequest struct {
	ProductID    uint       `json:"product_id" validate:"required"`
	SerialNumber string     `json:"serial_number" validate:"max=100"`
	Quantity     int        `json:"quantity" validate:"gte=0"`
	Status       string     `json:"status" validate:"omitempty,oneof=available sold damaged returned"`
	Location     string     `json:"location" validate:"max=100"`
	ReceivedAt   *time.Time `json:"received_at"`
}

// DecrementRequest asks to take units out of stock
type DecrementRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

func (r InventoryItemRequest) apply(item *model.InventoryItem) {
	item.ProductID = r.ProductID
	item.SerialNumber = r.SerialNumber
	item.Quantity = r.Quantity
	item.Location = r.Location
	item.ReceivedAt = r.ReceivedAt
	if r.Status != "" {
		item.Status = r.Status
	}
}

func productExists(c echo.Context, tenantID, productID uint) (bool, error) {
	var count int64
	err := scoped(c, tenantID).Model(&model.Product{}).Where("id = ?", productID).Count(&count).Error
	return count > 0, err
}

// ListInventory lists stock of the current tenant, filtered by status and product_id
func ListInventory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("inventory", "list")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	page, limit := pageParams(c)

	filter := func(db *gorm.DB) *gorm.DB {
		if status := c.QueryParam("status"); status != "" {
			db = db.Where("status = ?", status)
		}
		if productID, ok := queryID(c, "product_id"); ok {
			db = db.Where("product_id = ?", productID)
		}
		return db
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var total int64
	if err := scoped(c, tenantID).Scopes(filter).Model(&model.InventoryItem{}).Count(&total).Error; err != nil {
		log.Error("Failed to count inventory", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var items []model.InventoryItem
	if err := scoped(c, tenantID).Scopes(filter, database.Paginate(page, limit)).
		Preload("Product").
		Order("created_at desc").
		Find(&items).Error; err != nil {
		log.Error("Failed to retrieve inventory", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, paginated(items, page, limit, total))
}

// GetInventoryItem retrieves one stock row with its product
func GetInventoryItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("inventory", "get")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var item model.InventoryItem
	if err := scoped(c, tenantID).Preload("Product").First(&item, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve inventory item", zap.Uint("item_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	return c.JSON(http.StatusOK, item)
}

// CreateInventoryItem receives stock for a product of the tenant
func CreateInventoryItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("inventory", "create")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	var req InventoryItemRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	exists, err := productExists(c, tenantID, req.ProductID)
	if err != nil {
		log.Error("Failed to check product", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if !exists {
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.not_found")
	}

	item := model.InventoryItem{TenantID: tenantID, Status: model.InventoryAvailable}
	req.apply(&item)
	if item.ReceivedAt == nil {
		now := time.Now()
		item.ReceivedAt = &now
	}

	if err := database.GetDB().WithContext(c.Request().Context()).Create(&item).Error; err != nil {
		log.Error("Failed to create inventory item", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Inventory item created",
		zap.Uint("item_id", item.ID),
		zap.Uint("product_id", item.ProductID),
		zap.Int("quantity", item.Quantity))
	return c.JSON(http.StatusCreated, item)
}

// UpdateInventoryItem updates a stock row of the current tenant
func UpdateInventoryItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("inventory", "update")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req InventoryItemRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var item model.InventoryItem
	if err := scoped(c, tenantID).First(&item, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve inventory item", zap.Uint("item_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	if req.ProductID != item.ProductID {
		exists, err := productExists(c, tenantID, req.ProductID)
		if err != nil {
			log.Error("Failed to check product", zap.Error(err))
			return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
		}
		if !exists {
			return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.not_found")
		}
	}

	req.apply(&item)
	if err := database.GetDB().WithContext(c.Request().Context()).Save(&item).Error; err != nil {
		log.Error("Failed to update inventory item", zap.Uint("item_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Inventory item updated", zap.Uint("item_id", id), zap.Int("quantity", item.Quantity))
	return c.JSON(http.StatusOK, item)
}

// DeleteInventoryItem soft-deletes a stock row
func DeleteInventoryItem(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("inventory", "delete")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := scoped(c, tenantID).Delete(&model.InventoryItem{}, id)
	if result.Error != nil {
		log.Error("Failed to delete inventory item", zap.Uint("item_id", id), zap.Error(result.Error))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if result.RowsAffected == 0 {
		return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
	}

	log.Info("Inventory item deleted", zap.Uint("item_id", id))
	return deleted(c)
}

// DecrementInventory takes units out of a stock row. Quantity defaults to 1;
// the row is marked sold when it reaches zero.
func DecrementInventory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("inventory", "decrement")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req DecrementRequest
	if c.Request().ContentLength != 0 {
		if ok, err := bindAndValidate(c, &req); !ok {
			return err
		}
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	item, err := checkout.Decrement(c.Request().Context(), database.GetDB(), tenantID, id, req.Quantity)
	switch {
	case errors.Is(err, checkout.ErrItemNotFound):
		return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
	case errors.Is(err, checkout.ErrInsufficientStock):
		log.Warn("Insufficient stock",
			zap.Uint("item_id", id),
			zap.Int("requested", req.Quantity),
			zap.Int("available", item.Quantity))
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     middleware.Translate(c, "errors.insufficient_stock"),
			"available": item.Quantity,
		})
	case err != nil:
		log.Error("Failed to decrement inventory", zap.Uint("item_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Inventory decremented",
		zap.Uint("item_id", id),
		zap.Int("quantity", req.Quantity),
		zap.Int("remaining", item.Quantity))
	return c.JSON(http.StatusOK, item)
}
