package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/pkg/i18n"
)

// Translations returns the dictionary of the request locale, or of :locale when given
func Translations(c echo.Context) error {
	locale := c.Param("locale")
	if locale == "" {
		locale = middleware.Locale(c)
	}
	if !i18n.Supported(locale) {
		return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"locale":   locale,
		"locales":  i18n.Locales(),
		"messages": i18n.Dictionary(locale),
	})
}
