package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/i18n"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TenantRequest creates a shop, optionally with its first admin profile
type TenantRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Address       string `json:"address"`
	Phone         string `json:"phone" validate:"max=30"`
	Email         string `json:"email" validate:"omitempty,email"`
	Currency      string `json:"currency" validate:"omitempty,len=3"`
	DefaultLocale string `json:"default_locale" validate:"omitempty,max=10"`
	AdminEmail    string `json:"admin_email" validate:"omitempty,email"`
	AdminPassword string `json:"admin_password" validate:"required_with=AdminEmail,omitempty,min=8"`
	AdminName     string `json:"admin_name" validate:"max=150"`
}

// SelectTenantRequest picks the tenant a superuser acts on. Zero clears it.
type SelectTenantRequest struct {
	TenantID uint `json:"tenant_id"`
}

// slugify lowercases name and joins its alphanumeric runs with dashes
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ListTenants lists every tenant for superusers, otherwise only the caller's own
func ListTenants(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("tenant", "list")

	defer prometheus.TrackDBOperation("query")(time.Now())

	db := database.GetDB().WithContext(c.Request().Context())
	if !middleware.IsSuperuser(c) {
		id, ok := middleware.TenantID(c)
		if !ok {
			return c.JSON(http.StatusOK, echo.Map{"items": []model.Tenant{}})
		}
		db = db.Where("id = ?", id)
	}

	var tenants []model.Tenant
	if err := db.Order("name").Find(&tenants).Error; err != nil {
		log.Error("Failed to retrieve tenants", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tenants})
}

// CreateTenant creates a shop and, when admin credentials are given, its first admin
func CreateTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("tenant", "create")

	var req TenantRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if req.DefaultLocale != "" && !i18n.Supported(req.DefaultLocale) {
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.validation_failed")
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	tenant := model.Tenant{
		Name:          strings.TrimSpace(req.Name),
		Slug:          slugify(req.Name),
		Address:       req.Address,
		Phone:         req.Phone,
		Email:         req.Email,
		Currency:      strings.ToUpper(req.Currency),
		DefaultLocale: req.DefaultLocale,
		Active:        true,
	}
	if tenant.Currency == "" {
		tenant.Currency = "USD"
	}
	if tenant.DefaultLocale == "" {
		tenant.DefaultLocale = "en"
	}

	var admin *model.Profile
	err := database.GetDB().WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		if req.AdminEmail == "" {
			return nil
		}

		var role model.Role
		if err := tx.Where("name = ?", model.RoleAdmin).First(&role).Error; err != nil {
			return err
		}
		admin = &model.Profile{
			TenantID: &tenant.ID,
			RoleID:   role.ID,
			Email:    strings.ToLower(strings.TrimSpace(req.AdminEmail)),
			FullName: req.AdminName,
			Active:   true,
		}
		if err := admin.SetPassword(req.AdminPassword); err != nil {
			return err
		}
		return tx.Create(admin).Error
	})
	if err != nil {
		if isDuplicate(err) {
			log.Warn("Tenant or admin already exists", zap.String("name", tenant.Name))
			return middleware.JSONError(c, http.StatusConflict, "errors.duplicate_name")
		}
		log.Error("Failed to create tenant", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Tenant created",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("slug", tenant.Slug),
		zap.Bool("with_admin", admin != nil))

	response := echo.Map{"tenant": tenant}
	if admin != nil {
		response["admin"] = admin
	}
	return c.JSON(http.StatusCreated, response)
}

// SelectTenant stores the tenant a superuser acts on in the selected_tenant_id cookie
func SelectTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("tenant", "select")

	var req SelectTenantRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	if req.TenantID == 0 {
		middleware.SetCookie(c, middleware.CookieSelectedTenantID, "", -1, false)
		middleware.SetCookie(c, middleware.CookieTenantID, "", -1, false)
		log.Info("Tenant selection cleared")
		return c.JSON(http.StatusOK, echo.Map{
			"message": middleware.Translate(c, "messages.tenant_selected"),
			"tenant":  nil,
		})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var tenant model.Tenant
	if err := database.GetDB().WithContext(c.Request().Context()).
		Where("active = ?", true).
		First(&tenant, req.TenantID).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve tenant", zap.Uint("tenant_id", req.TenantID), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	id := strconv.FormatUint(uint64(tenant.ID), 10)
	middleware.SetCookie(c, middleware.CookieSelectedTenantID, id, 0, false)
	middleware.SetCookie(c, middleware.CookieTenantID, id, 0, false)

	log.Info("Tenant selected", zap.Uint("tenant_id", tenant.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": middleware.Translate(c, "messages.tenant_selected"),
		"tenant":  tenant,
	})
}
