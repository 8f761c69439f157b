package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurchaseOrderItemRequest is one ordered product line
type PurchaseOrderItemRequest struct {
	ProductID uint            `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gte=1,lte=1000"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// PurchaseOrderRequest defines the structure for purchase order creation requests
type PurchaseOrderRequest struct {
	SupplierID   uint                       `json:"supplier_id" validate:"required"`
	OrderDate    *time.Time                 `json:"order_date"`
	ExpectedDate *time.Time                 `json:"expected_date"`
	Notes        string                     `json:"notes"`
	Items        []PurchaseOrderItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

// ReceiveRequest optionally sets where received stock is stored
type ReceiveRequest struct {
	Location string `json:"location" validate:"max=100"`
}

// ListPurchaseOrders lists purchase orders, filtered by status and supplier_id
func ListPurchaseOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("purchase_order", "list")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	page, limit := pageParams(c)

	filter := func(db *gorm.DB) *gorm.DB {
		if status := c.QueryParam("status"); status != "" {
			db = db.Where("status = ?", status)
		}
		if supplierID, ok := queryID(c, "supplier_id"); ok {
			db = db.Where("supplier_id = ?", supplierID)
		}
		return db
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var total int64
	if err := scoped(c, tenantID).Scopes(filter).Model(&model.PurchaseOrder{}).Count(&total).Error; err != nil {
		log.Error("Failed to count purchase orders", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var orders []model.PurchaseOrder
	if err := scoped(c, tenantID).Scopes(filter, database.Paginate(page, limit)).
		Preload("Supplier").
		Order("order_date DESC, id DESC").
		Find(&orders).Error; err != nil {
		log.Error("Failed to retrieve purchase orders", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, paginated(orders, page, limit, total))
}

// GetPurchaseOrder retrieves a purchase order with its supplier and items
func GetPurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("purchase_order", "get")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var order model.PurchaseOrder
	if err := scoped(c, tenantID).Preload("Supplier").Preload("Items").First(&order, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve purchase order", zap.Uint("purchase_order_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	return c.JSON(http.StatusOK, order)
}

// CreatePurchaseOrder creates a draft order. The supplier and every product must belong to the tenant.
func CreatePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("purchase_order", "create")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	var req PurchaseOrderRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	for _, item := range req.Items {
		if item.UnitCost.IsNegative() {
			return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.validation_failed")
		}
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	var supplierCount int64
	if err := scoped(c, tenantID).Model(&model.Supplier{}).Where("id = ?", req.SupplierID).Count(&supplierCount).Error; err != nil {
		log.Error("Failed to check supplier", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if supplierCount == 0 {
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.not_found")
	}

	order := model.PurchaseOrder{
		TenantID:     tenantID,
		SupplierID:   req.SupplierID,
		Status:       model.PurchaseDraft,
		OrderDate:    time.Now(),
		ExpectedDate: req.ExpectedDate,
		Notes:        req.Notes,
		Total:        decimal.Zero,
	}
	if req.OrderDate != nil {
		order.OrderDate = *req.OrderDate
	}

	for _, item := range req.Items {
		exists, err := productExists(c, tenantID, item.ProductID)
		if err != nil {
			log.Error("Failed to check product", zap.Error(err))
			return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
		}
		if !exists {
			log.Warn("Purchase order references unknown product", zap.Uint("product_id", item.ProductID))
			return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.not_found")
		}

		lineTotal := item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity)))
		order.Items = append(order.Items, model.PurchaseOrderItem{
			TenantID:  tenantID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
			LineTotal: lineTotal,
		})
		order.Total = order.Total.Add(lineTotal)
	}

	// Creating the order also inserts its items through the association.
	if err := database.GetDB().WithContext(c.Request().Context()).Create(&order).Error; err != nil {
		log.Error("Failed to create purchase order", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Purchase order created",
		zap.Uint("purchase_order_id", order.ID),
		zap.Uint("supplier_id", order.SupplierID),
		zap.String("total", order.Total.StringFixed(2)))
	return c.JSON(http.StatusCreated, order)
}

// UpdatePurchaseOrderStatus moves an order to ordered or cancelled. Receiving goes
// through ReceivePurchaseOrder so stock gets created.
func UpdatePurchaseOrderStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("purchase_order", "status")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req StatusRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if !model.PurchaseTransitions.Valid(req.Status) {
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.validation_failed")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var order model.PurchaseOrder
	if err := scoped(c, tenantID).First(&order, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve purchase order", zap.Uint("purchase_order_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	if req.Status == model.PurchaseReceived || !model.PurchaseTransitions.Allows(order.Status, req.Status) {
		return middleware.JSONError(c, http.StatusConflict, "errors.invalid_transition")
	}

	if err := scoped(c, tenantID).Model(&order).Update("status", req.Status).Error; err != nil {
		log.Error("Failed to update purchase order status", zap.Uint("purchase_order_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	order.Status = req.Status

	log.Info("Purchase order status updated",
		zap.Uint("purchase_order_id", id),
		zap.String("status", req.Status))
	return c.JSON(http.StatusOK, order)
}

// ReceivePurchaseOrder books an ordered purchase into stock: one inventory item
// per ordered unit, then the order is marked received.
func ReceivePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("purchase_order", "receive")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req ReceiveRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var order model.PurchaseOrder
	if err := scoped(c, tenantID).Preload("Items").First(&order, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve purchase order", zap.Uint("purchase_order_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if !model.PurchaseTransitions.Allows(order.Status, model.PurchaseReceived) {
		return middleware.JSONError(c, http.StatusConflict, "errors.invalid_transition")
	}

	now := time.Now()
	var stock []model.InventoryItem
	for _, line := range order.Items {
		for i := 0; i < line.Quantity; i++ {
			stock = append(stock, model.InventoryItem{
				TenantID:   tenantID,
				ProductID:  line.ProductID,
				Quantity:   1,
				Status:     model.InventoryAvailable,
				Location:   req.Location,
				ReceivedAt: &now,
			})
		}
	}

	err = database.GetDB().WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		if len(stock) > 0 {
			if err := tx.CreateInBatches(&stock, 100).Error; err != nil {
				return err
			}
		}
		result := tx.Model(&model.PurchaseOrder{}).
			Where("id = ? AND tenant_id = ? AND status = ?", order.ID, tenantID, model.PurchaseOrdered).
			Updates(map[string]interface{}{"status": model.PurchaseReceived, "received_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return model.ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			return middleware.JSONError(c, http.StatusConflict, "errors.invalid_transition")
		}
		log.Error("Failed to receive purchase order", zap.Uint("purchase_order_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	order.Status = model.PurchaseReceived
	order.ReceivedAt = &now

	log.Info("Purchase order received",
		zap.Uint("purchase_order_id", id),
		zap.Int("items_created", len(stock)))
	return c.JSON(http.StatusOK, echo.Map{
		"order":          order,
		"items_received": len(stock),
	})
}

// DeletePurchaseOrder removes a draft or cancelled order
func DeletePurchaseOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("purchase_order", "delete")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	var order model.PurchaseOrder
	if err := scoped(c, tenantID).First(&order, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve purchase order", zap.Uint("purchase_order_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if order.Status != model.PurchaseDraft && order.Status != model.PurchaseCancelled {
		return middleware.JSONError(c, http.StatusConflict, "errors.invalid_transition")
	}

	if err := scoped(c, tenantID).Delete(&order).Error; err != nil {
		log.Error("Failed to delete purchase order", zap.Uint("purchase_order_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Purchase order deleted", zap.Uint("purchase_order_id", id))
	return deleted(c)
}
