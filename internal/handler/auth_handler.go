package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/jwtutil"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/prometheus"
	"go.uber.org/zap"
)

// LoginRequest holds login credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials and issues a token, also set as cookies for the web client
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AuthAttemptsCounter.Inc()

	var req LoginRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		prometheus.RecordAuthError("invalid_request")
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	defer prometheus.TrackDBOperation("query")(time.Now())

	profile, err := authenticate(c, email, req.Password)
	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		log.Warn("Invalid credentials", zap.String("email", email))
		return middleware.JSONError(c, http.StatusUnauthorized, "errors.invalid_credentials")
	case errors.Is(err, model.ErrInactiveAccount):
		log.Warn("Login for inactive account", zap.String("email", email))
		prometheus.RecordAuthError("inactive_account")
		return middleware.JSONError(c, http.StatusForbidden, "errors.account_inactive")
	case err != nil:
		log.Error("Failed to look up profile", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	token, err := jwtutil.GenerateToken(profile.Email, profile.ID, profile.TenantID, profile.Role.Name, profile.IsSuperuser)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	lifetime := jwtutil.Lifetime()

	middleware.SetCookie(c, middleware.CookieAccessToken, token, lifetime, true)
	if profile.TenantID != nil {
		middleware.SetCookie(c, middleware.CookieTenantID, strconv.FormatUint(uint64(*profile.TenantID), 10), lifetime, false)
	}
	middleware.SetCookie(c, middleware.CookieIsSuperuser, strconv.FormatBool(profile.IsSuperuser), lifetime, false)

	prometheus.AuthSuccessCounter.Inc()
	log.Info("User logged in",
		zap.Uint("user_id", profile.ID),
		zap.String("role", profile.Role.Name),
		zap.Bool("is_superuser", profile.IsSuperuser))

	return c.JSON(http.StatusOK, echo.Map{
		"token":      token,
		"expires_at": time.Now().Add(lifetime),
		"profile":    profile,
	})
}

// authenticate loads the profile for email and checks its password and status
func authenticate(c echo.Context, email, password string) (*model.Profile, error) {
	var profile model.Profile
	if err := database.GetDB().WithContext(c.Request().Context()).
		Preload("Role").Preload("Tenant").
		Where("email = ?", email).
		First(&profile).Error; err != nil {
		if isNotFound(err) {
			prometheus.RecordAuthError("user_not_found")
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}
	if !profile.CheckPassword(password) {
		prometheus.RecordAuthError("invalid_password")
		return nil, model.ErrInvalidCredentials
	}
	if !profile.Active || (profile.Tenant != nil && !profile.Tenant.Active) {
		return nil, model.ErrInactiveAccount
	}
	return &profile, nil
}

// Logout clears the session cookies
func Logout(c echo.Context) error {
	for _, name := range []string{
		middleware.CookieAccessToken,
		middleware.CookieTenantID,
		middleware.CookieIsSuperuser,
		middleware.CookieSelectedTenantID,
	} {
		middleware.SetCookie(c, name, "", -1, name == middleware.CookieAccessToken)
	}
	logger.FromContext(c).Info("User logged out")
	return c.JSON(http.StatusOK, echo.Map{
		"message": middleware.Translate(c, "messages.logged_out"),
	})
}

// Me returns the authenticated profile with its role and tenant
func Me(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JSONError(c, http.StatusUnauthorized, "errors.authentication_required")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var profile model.Profile
	if err := database.GetDB().WithContext(c.Request().Context()).
		Preload("Role").Preload("Tenant").
		First(&profile, userID).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusUnauthorized, "errors.invalid_token")
		}
		log.Error("Failed to load profile", zap.Uint("user_id", userID), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	response := echo.Map{"profile": profile}
	if tenantID, ok := middleware.TenantID(c); ok {
		response["tenant_id"] = tenantID
	}
	return c.JSON(http.StatusOK, response)
}
