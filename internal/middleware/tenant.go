package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/prometheus"
	"go.uber.org/zap"
)

// HeaderTenantID lets superusers pick a tenant per request
const HeaderTenantID = "X-Tenant-ID"

// TenantMiddleware resolves the tenant a request acts on and mirrors it to
// the tenant_id and is_superuser cookies. Profiles bound to a tenant always
// use the tenant from their token. Superusers use the X-Tenant-ID header or
// the selected_tenant_id cookie. Deactivated profiles are rejected even while
// their token is still valid.
func TenantMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		db := database.GetDB().WithContext(c.Request().Context())

		if userID, ok := UserID(c); ok {
			var inactive int64
			if err := db.Model(&model.Profile{}).
				Where("id = ? AND active = ?", userID, false).
				Count(&inactive).Error; err != nil {
				logger.FromContext(c).Error("Failed to check profile status", zap.Error(err))
				return JSONError(c, http.StatusInternalServerError, "errors.internal")
			}
			if inactive > 0 {
				logger.FromContext(c).Warn("Request from deactivated profile")
				prometheus.RecordAuthError("inactive_account")
				return JSONError(c, http.StatusUnauthorized, "errors.account_inactive")
			}
		}

		if IsSuperuser(c) {
			if id, ok := selectedTenant(c); ok {
				var count int64
				err := db.
					Model(&model.Tenant{}).
					Where("id = ? AND active = ?", id, true).
					Count(&count).Error
				if err == nil && count > 0 {
					c.Set(KeyTenantID, id)
					logger.Enrich(c, zap.Uint("tenant_id", id))
				} else {
					logger.FromContext(c).Warn("Ignoring unknown selected tenant", zap.Uint("tenant_id", id))
				}
			}
		}

		if id, ok := TenantID(c); ok {
			SetCookie(c, CookieTenantID, strconv.FormatUint(uint64(id), 10), 0, false)
		}
		SetCookie(c, CookieIsSuperuser, strconv.FormatBool(IsSuperuser(c)), 0, false)

		return next(c)
	}
}

func selectedTenant(c echo.Context) (uint, bool) {
	raw := c.Request().Header.Get(HeaderTenantID)
	if raw == "" {
		if cookie, err := c.Cookie(CookieSelectedTenantID); err == nil {
			raw = cookie.Value
		}
	}
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
