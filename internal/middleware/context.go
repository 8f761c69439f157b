package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/pkg/config"
	"github.com/opticshop/optics/pkg/i18n"
)

// Context keys set by the middleware chain
const (
	KeyUserID      = "user_id"
	KeyEmail       = "email"
	KeyRole        = "role"
	KeyTenantID    = "tenant_id"
	KeyIsSuperuser = "is_superuser"
	KeyLocale      = "locale"
)

// Cookie names shared with the web client
const (
	CookieAccessToken      = "access_token"
	CookieTenantID         = "tenant_id"
	CookieIsSuperuser      = "is_superuser"
	CookieSelectedTenantID = "selected_tenant_id"
	CookieLocale           = "NEXT_LOCALE"
)

var cookieSecure bool

// Configure applies server settings used when writing cookies
func Configure(cfg *config.Config) {
	cookieSecure = cfg.Server.CookieSecure
}

// SetCookie writes a cookie on the response. maxAge < 0 deletes it.
func SetCookie(c echo.Context, name, value string, maxAge time.Duration, httpOnly bool) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	} else if maxAge > 0 {
		cookie.MaxAge = int(maxAge.Seconds())
		cookie.Expires = time.Now().Add(maxAge)
	}
	c.SetCookie(cookie)
}

// TenantID returns the tenant the request acts on
func TenantID(c echo.Context) (uint, bool) {
	id, ok := c.Get(KeyTenantID).(uint)
	return id, ok && id != 0
}

// UserID returns the authenticated profile id
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(KeyUserID).(uint)
	return id, ok
}

// Role returns the role name from the token
func Role(c echo.Context) string {
	role, _ := c.Get(KeyRole).(string)
	return role
}

// IsSuperuser reports whether the authenticated profile is a superuser
func IsSuperuser(c echo.Context) bool {
	su, _ := c.Get(KeyIsSuperuser).(bool)
	return su
}

// Locale returns the negotiated locale of the request
func Locale(c echo.Context) string {
	if l, ok := c.Get(KeyLocale).(string); ok && l != "" {
		return l
	}
	return i18n.DefaultLocale
}

// Translate looks key up in the request locale's dictionary
func Translate(c echo.Context, key string) string {
	return i18n.T(Locale(c), key)
}

// TranslateLocale looks key up for an explicit locale, for work outliving the request
func TranslateLocale(locale, key string) string {
	return i18n.T(locale, key)
}

// JSONError writes {"error": message} translated to the request locale
func JSONError(c echo.Context, status int, key string) error {
	return c.JSON(status, echo.Map{"error": Translate(c, key)})
}
