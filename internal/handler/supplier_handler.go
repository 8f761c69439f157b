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
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SupplierRequest defines the structure for supplier creation/update requests
type SupplierRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Code          string `json:"code" validate:"required,max=50"`
	ContactPerson string `json:"contact_person" validate:"max=100"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"max=30"`
	Address       string `json:"address"`
	PaymentTerms  string `json:"payment_terms" validate:"max=100"`
	IsActive      *bool  `json:"is_active"`
}

func (r SupplierRequest) apply(s *model.Supplier) {
	s.Name = r.Name
	s.Code = r.Code
	s.ContactPerson = r.ContactPerson
	s.Email = r.Email
	s.Phone = r.Phone
	s.Address = r.Address
	s.PaymentTerms = r.PaymentTerms
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
}

// codeTaken reports whether another supplier of the tenant uses the code
func codeTaken(c echo.Context, tenantID uint, code string, exceptID uint) (bool, error) {
	var count int64
	err := scoped(c, tenantID).Model(&model.Supplier{}).
		Where("code = ? AND id <> ?", code, exceptID).
		Count(&count).Error
	return count > 0, err
}

// ListSuppliers lists the tenant's suppliers, filtered by is_active and q (name or code)
func ListSuppliers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("supplier", "list")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	page, limit := pageParams(c)

	filter := func(db *gorm.DB) *gorm.DB {
		if raw := c.QueryParam("is_active"); raw != "" {
			if active, err := strconv.ParseBool(raw); err == nil {
				db = db.Where("is_active = ?", active)
			}
		}
		if q := c.QueryParam("q"); q != "" {
			pattern := likePattern(q)
			db = db.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", pattern, pattern)
		}
		return db
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var total int64
	if err := scoped(c, tenantID).Scopes(filter).Model(&model.Supplier{}).Count(&total).Error; err != nil {
		log.Error("Failed to count suppliers", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var suppliers []model.Supplier
	if err := scoped(c, tenantID).Scopes(filter, database.Paginate(page, limit)).
		Order("name").
		Find(&suppliers).Error; err != nil {
		log.Error("Failed to retrieve suppliers", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, paginated(suppliers, page, limit, total))
}

// GetSupplier retrieves a supplier by ID for the current tenant
func GetSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("supplier", "get")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var supplier model.Supplier
	if err := scoped(c, tenantID).First(&supplier, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve supplier", zap.Uint("supplier_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	return c.JSON(http.StatusOK, supplier)
}

// CreateSupplier creates a new supplier for the current tenant
func CreateSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("supplier", "create")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	var req SupplierRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	taken, err := codeTaken(c, tenantID, req.Code, 0)
	if err != nil {
		log.Error("Failed to check supplier code", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if taken {
		log.Warn("Supplier with this code already exists for this tenant",
			zap.String("code", req.Code),
			zap.Uint("tenant_id", tenantID))
		return middleware.JSONError(c, http.StatusConflict, "errors.duplicate_code")
	}

	supplier := model.Supplier{TenantID: tenantID, IsActive: true}
	req.apply(&supplier)

	if err := database.GetDB().WithContext(c.Request().Context()).Create(&supplier).Error; err != nil {
		if isDuplicate(err) {
			return middleware.JSONError(c, http.StatusConflict, "errors.duplicate_code")
		}
		log.Error("Failed to create supplier",
			zap.String("code", req.Code),
			zap.Uint("tenant_id", tenantID),
			zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Supplier created successfully",
		zap.Uint("id", supplier.ID),
		zap.String("code", supplier.Code),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, supplier)
}

// UpdateSupplier updates a supplier of the current tenant
func UpdateSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("supplier", "update")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req SupplierRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var supplier model.Supplier
	if err := scoped(c, tenantID).First(&supplier, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve supplier", zap.Uint("supplier_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	if req.Code != supplier.Code {
		taken, err := codeTaken(c, tenantID, req.Code, supplier.ID)
		if err != nil {
			log.Error("Failed to check supplier code", zap.Error(err))
			return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
		}
		if taken {
			return middleware.JSONError(c, http.StatusConflict, "errors.duplicate_code")
		}
	}

	req.apply(&supplier)
	if err := database.GetDB().WithContext(c.Request().Context()).Save(&supplier).Error; err != nil {
		if isDuplicate(err) {
			return middleware.JSONError(c, http.StatusConflict, "errors.duplicate_code")
		}
		log.Error("Failed to update supplier", zap.Uint("supplier_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Supplier updated successfully", zap.Uint("supplier_id", id))
	return c.JSON(http.StatusOK, supplier)
}

// DeleteSupplier soft-deletes a supplier
func DeleteSupplier(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("supplier", "delete")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := scoped(c, tenantID).Delete(&model.Supplier{}, id)
	if result.Error != nil {
		log.Error("Failed to delete supplier", zap.Uint("supplier_id", id), zap.Error(result.Error))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if result.RowsAffected == 0 {
		return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
	}

	log.Info("Supplier deleted successfully", zap.Uint("supplier_id", id))
	return deleted(c)
}
