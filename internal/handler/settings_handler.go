package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/i18n"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/prometheus"
	"go.uber.org/zap"
)

// SettingsRequest holds the editable shop settings
type SettingsRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Address       string `json:"address"`
	Phone         string `json:"phone" validate:"max=30"`
	Email         string `json:"email" validate:"omitempty,email"`
	Currency      string `json:"currency" validate:"required,len=3"`
	DefaultLocale string `json:"default_locale" validate:"required"`
}

func currentTenant(c echo.Context, tenantID uint) (*model.Tenant, error) {
	var tenant model.Tenant
	err := database.GetDB().WithContext(c.Request().Context()).First(&tenant, tenantID).Error
	return &tenant, err
}

// GetSettings returns the current tenant's settings
func GetSettings(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("settings", "get")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	tenant, err := currentTenant(c, tenantID)
	if err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve settings", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"tenant":  tenant,
		"locales": i18n.Locales(),
	})
}

// UpdateSettings edits the current tenant's name, contact details, currency and locale
func UpdateSettings(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("settings", "update")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	var req SettingsRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if !i18n.Supported(req.DefaultLocale) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":  middleware.Translate(c, "errors.validation_failed"),
			"fields": map[string]string{"default_locale": "must be one of " + strings.Join(i18n.Locales(), " ")},
		})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	tenant, err := currentTenant(c, tenantID)
	if err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve settings", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	tenant.Name = strings.TrimSpace(req.Name)
	tenant.Address = req.Address
	tenant.Phone = req.Phone
	tenant.Email = req.Email
	tenant.Currency = strings.ToUpper(req.Currency)
	tenant.DefaultLocale = req.DefaultLocale

	if err := database.GetDB().WithContext(c.Request().Context()).Save(tenant).Error; err != nil {
		if isDuplicate(err) {
			return middleware.JSONError(c, http.StatusConflict, "errors.duplicate_name")
		}
		log.Error("Failed to update settings", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Settings updated", zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, echo.Map{"tenant": tenant})
}
