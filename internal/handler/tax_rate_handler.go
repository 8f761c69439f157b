package handler

import (
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

var hundred = decimal.NewFromInt(100)

// TaxRateRequest defines the structure for tax rate creation/update requests
type TaxRateRequest struct {
	Name      string          `json:"name" validate:"required,max=100"`
	Rate      decimal.Decimal `json:"rate"`
	IsDefault bool            `json:"is_default"`
}

func (r TaxRateRequest) validRate() bool {
	return !r.Rate.IsNegative() && r.Rate.LessThanOrEqual(hundred)
}

// saveTaxRate writes rate and, when it is the default, clears the flag on every
// other rate of the tenant in the same transaction.
func saveTaxRate(c echo.Context, rate *model.TaxRate) error {
	return database.GetDB().WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(rate).Error; err != nil {
			return err
		}
		if !rate.IsDefault {
			return nil
		}
		return tx.Model(&model.TaxRate{}).
			Where("tenant_id = ? AND id <> ? AND is_default = ?", rate.TenantID, rate.ID, true).
			Update("is_default", false).Error
	})
}

// ListTaxRates lists the tenant's tax rates
func ListTaxRates(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("tax_rate", "list")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var rates []model.TaxRate
	if err := scoped(c, tenantID).Order("name").Find(&rates).Error; err != nil {
		log.Error("Failed to retrieve tax rates", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rates})
}

// GetTaxRate retrieves a tax rate
func GetTaxRate(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("tax_rate", "get")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var rate model.TaxRate
	if err := scoped(c, tenantID).First(&rate, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve tax rate", zap.Uint("tax_rate_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	return c.JSON(http.StatusOK, rate)
}

// CreateTaxRate adds a tax rate, a percentage between 0 and 100
func CreateTaxRate(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("tax_rate", "create")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	var req TaxRateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if !req.validRate() {
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.validation_failed")
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	rate := model.TaxRate{
		TenantID:  tenantID,
		Name:      req.Name,
		Rate:      req.Rate,
		IsDefault: req.IsDefault,
	}
	if err := saveTaxRate(c, &rate); err != nil {
		log.Error("Failed to create tax rate", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Tax rate created",
		zap.Uint("tax_rate_id", rate.ID),
		zap.String("rate", rate.Rate.String()),
		zap.Bool("is_default", rate.IsDefault))
	return c.JSON(http.StatusCreated, rate)
}

// UpdateTaxRate updates a tax rate
func UpdateTaxRate(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("tax_rate", "update")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req TaxRateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if !req.validRate() {
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.validation_failed")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var rate model.TaxRate
	if err := scoped(c, tenantID).First(&rate, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve tax rate", zap.Uint("tax_rate_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	rate.Name = req.Name
	rate.Rate = req.Rate
	rate.IsDefault = req.IsDefault
	if err := saveTaxRate(c, &rate); err != nil {
		log.Error("Failed to update tax rate", zap.Uint("tax_rate_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Tax rate updated", zap.Uint("tax_rate_id", id))
	return c.JSON(http.StatusOK, rate)
}

// SetDefaultTaxRate makes the rate the tenant's default, unsetting the previous one
func SetDefaultTaxRate(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("tax_rate", "set_default")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var rate model.TaxRate
	if err := scoped(c, tenantID).First(&rate, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve tax rate", zap.Uint("tax_rate_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	rate.IsDefault = true
	if err := saveTaxRate(c, &rate); err != nil {
		log.Error("Failed to set default tax rate", zap.Uint("tax_rate_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Default tax rate set", zap.Uint("tax_rate_id", id), zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, rate)
}

// DeleteTaxRate removes a tax rate. Deleting the default leaves the tenant without one.
func DeleteTaxRate(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("tax_rate", "delete")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := scoped(c, tenantID).Delete(&model.TaxRate{}, id)
	if result.Error != nil {
		log.Error("Failed to delete tax rate", zap.Uint("tax_rate_id", id), zap.Error(result.Error))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if result.RowsAffected == 0 {
		return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
	}

	log.Info("Tax rate deleted", zap.Uint("tax_rate_id", id))
	return deleted(c)
}
