package handler

import (
	"net/http"
	"sort"
	"strconv"
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

const defaultTopProducts = 10

// SalesTotals are summed amounts of completed sales
type SalesTotals struct {
	Orders   int64           `json:"orders"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

func (t *SalesTotals) add(o model.SalesOrder) {
	t.Orders++
	t.Subtotal = t.Subtotal.Add(o.Subtotal)
	t.Discount = t.Discount.Add(o.Discount)
	t.Tax = t.Tax.Add(o.Tax)
	t.Total = t.Total.Add(o.Total)
}

// DailySales is one day of the sales summary
type DailySales struct {
	Date string `json:"date"`
	SalesTotals
}

// StatusCount is a row count per status
type StatusCount struct {
	Status   string `json:"status"`
	Count    int64  `json:"count"`
	Quantity int64  `json:"quantity,omitempty"`
}

// CategoryValue is the stock held in one product category, valued at cost
type CategoryValue struct {
	Category string          `json:"category"`
	Quantity int64           `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

// ProductSales is one row of the best sellers report
type ProductSales struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int64           `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

func completedSales(tenantID uint, from, to *time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("sales_orders.tenant_id = ? AND sales_orders.status = ?", tenantID, model.SaleStatusCompleted)
		return applyDateRange(db, "sales_orders.created_at", from, to)
	}
}

// SalesSummary reports completed sales totals for a date range with one row per day
func SalesSummary(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("report", "sales_summary")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	from, to, err := dateRange(c)
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_request")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var orders []model.SalesOrder
	if err := database.GetDB().WithContext(c.Request().Context()).
		Scopes(completedSales(tenantID, from, to)).
		Select("id", "created_at", "subtotal", "discount", "tax", "total").
		Order("created_at").
		Find(&orders).Error; err != nil {
		log.Error("Failed to load sales for summary", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var totals SalesTotals
	byDay := map[string]*DailySales{}
	for _, o := range orders {
		totals.add(o)
		day := o.CreatedAt.Format(dateLayout)
		row, ok := byDay[day]
		if !ok {
			row = &DailySales{Date: day}
			byDay[day] = row
		}
		row.add(o)
	}

	days := make([]DailySales, 0, len(byDay))
	for _, row := range byDay {
		days = append(days, *row)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	return c.JSON(http.StatusOK, echo.Map{
		"from":   from,
		"to":     to,
		"totals": totals,
		"days":   days,
	})
}

// InventoryReport counts stock by status and values available stock per category
func InventoryReport(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("report", "inventory")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var byStatus []StatusCount
	if err := scoped(c, tenantID).Model(&model.InventoryItem{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(quantity), 0) AS quantity").
		Group("status").
		Order("status").
		Scan(&byStatus).Error; err != nil {
		log.Error("Failed to count inventory by status", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var byCategory []CategoryValue
	if err := database.GetDB().WithContext(c.Request().Context()).Model(&model.InventoryItem{}).
		Select("products.category AS category, COALESCE(SUM(inventory_items.quantity), 0) AS quantity, "+
			"COALESCE(SUM(inventory_items.quantity * products.cost), 0) AS value").
		Joins("JOIN products ON products.id = inventory_items.product_id").
		Where("inventory_items.tenant_id = ? AND inventory_items.status = ?", tenantID, model.InventoryAvailable).
		Group("products.category").
		Order("products.category").
		Scan(&byCategory).Error; err != nil {
		log.Error("Failed to value inventory", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	value := decimal.Zero
	for _, row := range byCategory {
		value = value.Add(row.Value)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"by_status":   byStatus,
		"by_category": byCategory,
		"stock_value": value,
	})
}

// TopProducts lists the best selling products of completed sales by quantity
func TopProducts(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("report", "top_products")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	from, to, err := dateRange(c)
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_request")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > maxPageSize {
		limit = defaultTopProducts
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var rows []ProductSales
	if err := database.GetDB().WithContext(c.Request().Context()).Model(&model.SalesOrderItem{}).
		Select("products.id AS product_id, products.name AS name, products.sku AS sku, "+
			"SUM(sales_order_items.quantity) AS quantity, SUM(sales_order_items.line_total) AS revenue").
		Joins("JOIN sales_orders ON sales_orders.id = sales_order_items.sales_order_id AND sales_orders.deleted_at IS NULL").
		Joins("JOIN products ON products.id = sales_order_items.product_id").
		Scopes(completedSales(tenantID, from, to)).
		Group("products.id, products.name, products.sku").
		Order("quantity DESC, revenue DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		log.Error("Failed to compute top products", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, echo.Map{"items": rows})
}

// AppointmentReport counts appointments by status for a date range
func AppointmentReport(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("report", "appointments")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	from, to, err := dateRange(c)
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_request")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var byStatus []StatusCount
	if err := applyDateRange(scoped(c, tenantID).Model(&model.Appointment{}), "scheduled_at", from, to).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&byStatus).Error; err != nil {
		log.Error("Failed to count appointments", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var total int64
	for _, row := range byStatus {
		total += row.Count
	}

	return c.JSON(http.StatusOK, echo.Map{
		"by_status": byStatus,
		"total":     total,
	})
}
