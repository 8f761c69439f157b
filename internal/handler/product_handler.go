package handler

import (
	"net/http"
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

// ProductRequest defines the structure for product creation/update requests
type ProductRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	SKU         string          `json:"sku" validate:"required,max=100"`
	Category    string          `json:"category" validate:"required,oneof=frames lenses contact_lenses accessories services"`
	Brand       string          `json:"brand" validate:"max=100"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Active      *bool           `json:"active"`
}

func (r ProductRequest) apply(p *model.Product) {
	p.Name = r.Name
	p.SKU = r.SKU
	p.Category = r.Category
	p.Brand = r.Brand
	p.Description = r.Description
	p.Price = r.Price
	p.Cost = r.Cost
	if r.Active != nil {
		p.Active = *r.Active
	}
}

func (r ProductRequest) negativeAmount() bool {
	return r.Price.IsNegative() || r.Cost.IsNegative()
}

// skuTaken reports whether another product of the tenant uses the SKU
func skuTaken(c echo.Context, tenantID uint, sku string, exceptID uint) (bool, error) {
	var count int64
	err := scoped(c, tenantID).Model(&model.Product{}).
		Where("sku = ? AND id <> ?", sku, exceptID).
		Count(&count).Error
	return count > 0, err
}

// ListProducts lists the tenant's products, filtered by category, active and q (name or SKU)
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("product", "list")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	page, limit := pageParams(c)

	filter := func(db *gorm.DB) *gorm.DB {
		if category := c.QueryParam("category"); category != "" {
			db = db.Where("category = ?", category)
		}
		if raw := c.QueryParam("active"); raw != "" {
			if active, err := strconv.ParseBool(raw); err == nil {
				db = db.Where("active = ?", active)
			}
		}
		if q := c.QueryParam("q"); q != "" {
			pattern := likePattern(q)
			db = db.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", pattern, pattern)
		}
		return db
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var total int64
	if err := scoped(c, tenantID).Scopes(filter).Model(&model.Product{}).Count(&total).Error; err != nil {
		log.Error("Failed to count products", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var products []model.Product
	if err := scoped(c, tenantID).Scopes(filter, database.Paginate(page, limit)).
		Order("name").
		Find(&products).Error; err != nil {
		log.Error("Failed to retrieve products", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, paginated(products, page, limit, total))
}

// GetProduct retrieves a product of the current tenant
func GetProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("product", "get")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var product model.Product
	if err := scoped(c, tenantID).First(&product, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve product", zap.Uint("product_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	return c.JSON(http.StatusOK, product)
}

// CreateProduct adds a product to the tenant's catalog. SKUs are unique per tenant.
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("product", "create")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	var req ProductRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if req.negativeAmount() {
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.validation_failed")
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	taken, err := skuTaken(c, tenantID, req.SKU, 0)
	if err != nil {
		log.Error("Failed to check SKU", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if taken {
		log.Warn("Product with this SKU already exists", zap.String("sku", req.SKU))
		return middleware.JSONError(c, http.StatusConflict, "errors.duplicate_sku")
	}

	product := model.Product{TenantID: tenantID, Active: true}
	req.apply(&product)

	if err := database.GetDB().WithContext(c.Request().Context()).Create(&product).Error; err != nil {
		if isDuplicate(err) {
			return middleware.JSONError(c, http.StatusConflict, "errors.duplicate_sku")
		}
		log.Error("Failed to create product", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.String("sku", product.SKU),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct updates a product of the current tenant
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("product", "update")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req ProductRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if req.negativeAmount() {
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.validation_failed")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var product model.Product
	if err := scoped(c, tenantID).First(&product, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve product", zap.Uint("product_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	if req.SKU != product.SKU {
		taken, err := skuTaken(c, tenantID, req.SKU, product.ID)
		if err != nil {
			log.Error("Failed to check SKU", zap.Error(err))
			return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
		}
		if taken {
			return middleware.JSONError(c, http.StatusConflict, "errors.duplicate_sku")
		}
	}

	req.apply(&product)
	if err := database.GetDB().WithContext(c.Request().Context()).Save(&product).Error; err != nil {
		if isDuplicate(err) {
			return middleware.JSONError(c, http.StatusConflict, "errors.duplicate_sku")
		}
		log.Error("Failed to update product", zap.Uint("product_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Product updated", zap.Uint("product_id", id))
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct soft-deletes a product of the current tenant
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("product", "delete")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := scoped(c, tenantID).Delete(&model.Product{}, id)
	if result.Error != nil {
		log.Error("Failed to delete product", zap.Uint("product_id", id), zap.Error(result.Error))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if result.RowsAffected == 0 {
		return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
	}

	log.Info("Product deleted", zap.Uint("product_id", id))
	return deleted(c)
}
