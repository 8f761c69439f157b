package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/pkg/jwtutil"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/prometheus"
	"go.uber.org/zap"
)

// AuthMiddleware verifies the JWT from the Authorization header or the
// access_token cookie and stores the claims in the context.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)
		prometheus.AuthAttemptsCounter.Inc()

		tokenString := bearerToken(c)
		if tokenString == "" {
			log.Warn("Missing authorization token")
			prometheus.RecordAuthError("missing_token")
			return JSONError(c, http.StatusUnauthorized, "errors.authentication_required")
		}

		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Invalid token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return JSONError(c, http.StatusUnauthorized, "errors.invalid_token")
		}

		prometheus.AuthSuccessCounter.Inc()

		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyEmail, claims.Email)
		c.Set(KeyRole, claims.Role)
		c.Set(KeyIsSuperuser, claims.IsSuperuser)

		fields := []zap.Field{
			zap.Uint("user_id", claims.UserID),
			zap.String("role", claims.Role),
		}
		if claims.TenantID != nil {
			c.Set(KeyTenantID, *claims.TenantID)
			fields = append(fields, zap.Uint("tenant_id", *claims.TenantID))
		}
		logger.Enrich(c, fields...)

		return next(c)
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if cookie, err := c.Cookie(CookieAccessToken); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireTenantContext ensures the request acts on a tenant
func RequireTenantContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := TenantID(c); !ok {
			logger.FromContext(c).Warn("Missing tenant context")
			prometheus.TenantContextMissingCounter.Inc()
			return JSONError(c, http.StatusForbidden, "errors.tenant_required")
		}
		return next(c)
	}
}

// RequireSuperuser only lets superusers through
func RequireSuperuser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsSuperuser(c) {
			logger.FromContext(c).Warn("Superuser required")
			return JSONError(c, http.StatusForbidden, "errors.forbidden")
		}
		return next(c)
	}
}

// RequireRole lets through superusers and profiles holding one of roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IsSuperuser(c) {
				return next(c)
			}
			role := Role(c)
			for _, r := range roles {
				if r == role {
					return next(c)
				}
			}
			logger.FromContext(c).Warn("Role not allowed",
				zap.String("role", role),
				zap.Strings("allowed", roles))
			return JSONError(c, http.StatusForbidden, "errors.forbidden")
		}
	}
}
