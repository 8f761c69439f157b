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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CheckoutRequest is the point-of-sale cart submitted by the client
type CheckoutRequest struct {
	CustomerID    *uint                  `json:"customer_id"`
	Items         []checkout.ItemRequest `json:"items" validate:"dive"`
	Discount      decimal.Decimal        `json:"discount"`
	PaymentMethod string                 `json:"payment_method" validate:"omitempty,oneof=cash card transfer insurance"`
	Notes         string                 `json:"notes"`
}

// StatusRequest changes the status of an order or appointment
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (r CheckoutRequest) toCheckout(tenantID, profileID uint) checkout.Request {
	return checkout.Request{
		TenantID:      tenantID,
		ProfileID:     profileID,
		CustomerID:    r.CustomerID,
		Items:         r.Items,
		Discount:      r.Discount,
		PaymentMethod: r.PaymentMethod,
		Notes:         r.Notes,
	}
}

// bindCart binds and validates a cart. Empty carts are rejected here so they
// never reach the database.
func bindCart(c echo.Context) (*CheckoutRequest, bool, error) {
	var req CheckoutRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return nil, false, err
	}
	if len(req.Items) == 0 {
		prometheus.CheckoutsCounter.WithLabelValues("rejected").Inc()
		return nil, false, middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.empty_cart")
	}
	if req.Discount.IsNegative() {
		return nil, false, middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.validation_failed")
	}
	return &req, true, nil
}

func checkoutError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.empty_cart")
	case errors.Is(err, checkout.ErrItemNotFound), errors.Is(err, checkout.ErrCustomerNotFound):
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.not_found")
	default:
		logger.FromContext(c).Error("Checkout failed", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.checkout_failed")
	}
}

// Checkout records a sale: order, lines and payment are saved together, then
// stock is decremented. Stock failures come back as warnings with 201.
func Checkout(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("sale", "checkout")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	userID, _ := middleware.UserID(c)

	req, ok, err := bindCart(c)
	if !ok {
		return err
	}

	result, err := checkout.New(database.GetDB()).Checkout(c.Request().Context(), req.toCheckout(tenantID, userID))
	if err != nil {
		return checkoutError(c, err)
	}

	message := "messages.sale_completed"
	if len(result.Warnings) > 0 {
		message = "messages.sale_completed_with_warnings"
	}

	log.Info("Sale recorded",
		zap.Uint("order_id", result.Order.ID),
		zap.Int("warnings", len(result.Warnings)))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  middleware.Translate(c, message),
		"order":    result.Order,
		"totals":   result.Totals,
		"warnings": result.Warnings,
	})
}

// QuoteSale prices a cart without saving it
func QuoteSale(c echo.Context) error {
	prometheus.RecordOperation("sale", "quote")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	userID, _ := middleware.UserID(c)

	req, ok, err := bindCart(c)
	if !ok {
		return err
	}

	cart, err := checkout.New(database.GetDB()).Quote(c.Request().Context(), req.toCheckout(tenantID, userID))
	if err != nil {
		return checkoutError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"lines":  cart.Lines,
		"totals": cart.Totals(),
	})
}

// ListSales lists orders filtered by status, customer_id and a from/to date range
func ListSales(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("sale", "list")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	page, limit := pageParams(c)
	from, to, err := dateRange(c)
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_request")
	}

	filter := func(db *gorm.DB) *gorm.DB {
		if status := c.QueryParam("status"); status != "" {
			db = db.Where("status = ?", status)
		}
		if customerID, ok := queryID(c, "customer_id"); ok {
			db = db.Where("customer_id = ?", customerID)
		}
		return applyDateRange(db, "created_at", from, to)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var total int64
	if err := scoped(c, tenantID).Scopes(filter).Model(&model.SalesOrder{}).Count(&total).Error; err != nil {
		log.Error("Failed to count sales", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var orders []model.SalesOrder
	if err := scoped(c, tenantID).Scopes(filter, database.Paginate(page, limit)).
		Preload("Customer").
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		log.Error("Failed to retrieve sales", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, paginated(orders, page, limit, total))
}

// GetSale retrieves an order with its lines, payments and customer
func GetSale(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("sale", "get")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var order model.SalesOrder
	if err := scoped(c, tenantID).
		Preload("Items").
		Preload("Payments").
		Preload("Customer").
		First(&order, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve sale", zap.Uint("order_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateSaleStatus moves an order along its lifecycle, e.g. completed -> returned
func UpdateSaleStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("sale", "status")

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
	if !model.SaleTransitions.Valid(req.Status) {
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.validation_failed")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var order model.SalesOrder
	if err := scoped(c, tenantID).First(&order, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve sale", zap.Uint("order_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	if !model.SaleTransitions.Allows(order.Status, req.Status) {
		log.Warn("Invalid sale status transition",
			zap.Uint("order_id", id),
			zap.String("from", order.Status),
			zap.String("to", req.Status))
		return middleware.JSONError(c, http.StatusConflict, "errors.invalid_transition")
	}

	oldStatus := order.Status
	if err := scoped(c, tenantID).Model(&order).Update("status", req.Status).Error; err != nil {
		log.Error("Failed to update sale status", zap.Uint("order_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	order.Status = req.Status

	log.Info("Sale status updated",
		zap.Uint("order_id", id),
		zap.String("from", oldStatus),
		zap.String("to", req.Status))
	return c.JSON(http.StatusOK, order)
}
