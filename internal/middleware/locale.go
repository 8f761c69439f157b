package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/pkg/i18n"
)

// LocaleMiddleware negotiates the response language from the NEXT_LOCALE
// cookie and the Accept-Language header.
func LocaleMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var preferred string
		if cookie, err := c.Cookie(CookieLocale); err == nil {
			preferred = cookie.Value
		}

		locale := i18n.Match(preferred, c.Request().Header.Get("Accept-Language"))
		c.Set(KeyLocale, locale)
		c.Response().Header().Set("Content-Language", locale)

		return next(c)
	}
}
