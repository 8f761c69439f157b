package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/prometheus"
	"go.uber.org/zap"
)

// CreateUserRequest adds a profile to the current tenant
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=150"`
	Role     string `json:"role" validate:"required,oneof=admin manager optometrist cashier"`
}

// UpdateUserRequest edits a profile. An empty password keeps the current one.
type UpdateUserRequest struct {
	FullName string `json:"full_name" validate:"required,max=150"`
	Role     string `json:"role" validate:"required,oneof=admin manager optometrist cashier"`
	Password string `json:"password" validate:"omitempty,min=8"`
	Active   *bool  `json:"active"`
}

func roleByName(c echo.Context, name string) (*model.Role, error) {
	var role model.Role
	err := database.GetDB().WithContext(c.Request().Context()).Where("name = ?", name).First(&role).Error
	return &role, err
}

// ListRoles lists the roles profiles can hold
func ListRoles(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())

	var roles []model.Role
	if err := database.GetDB().WithContext(c.Request().Context()).Order("id").Find(&roles).Error; err != nil {
		log.Error("Failed to retrieve roles", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": roles})
}

// ListUsers lists the current tenant's profiles
func ListUsers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "list")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	page, limit := pageParams(c)

	defer prometheus.TrackDBOperation("query")(time.Now())

	var total int64
	if err := scoped(c, tenantID).Model(&model.Profile{}).Count(&total).Error; err != nil {
		log.Error("Failed to count users", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var profiles []model.Profile
	if err := scoped(c, tenantID).Scopes(database.Paginate(page, limit)).
		Preload("Role").
		Order("email").
		Find(&profiles).Error; err != nil {
		log.Error("Failed to retrieve users", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, paginated(profiles, page, limit, total))
}

// CreateUser adds a profile with a role to the current tenant
func CreateUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "create")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	var req CreateUserRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	defer prometheus.TrackDBOperation("insert")(time.Now())

	role, err := roleByName(c, req.Role)
	if err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.not_found")
		}
		log.Error("Failed to look up role", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var count int64
	if err := database.GetDB().WithContext(c.Request().Context()).Unscoped().
		Model(&model.Profile{}).Where("email = ?", email).Count(&count).Error; err != nil {
		log.Error("Failed to check email", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if count > 0 {
		log.Warn("Email already registered", zap.String("email", email))
		return middleware.JSONError(c, http.StatusConflict, "errors.duplicate_email")
	}

	profile := model.Profile{
		TenantID: &tenantID,
		RoleID:   role.ID,
		Email:    email,
		FullName: req.FullName,
		Active:   true,
	}
	if err := profile.SetPassword(req.Password); err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	if err := database.GetDB().WithContext(c.Request().Context()).Omit("Role", "Tenant").Create(&profile).Error; err != nil {
		if isDuplicate(err) {
			return middleware.JSONError(c, http.StatusConflict, "errors.duplicate_email")
		}
		log.Error("Failed to create user", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	profile.Role = *role

	log.Info("User created",
		zap.Uint("profile_id", profile.ID),
		zap.String("role", role.Name),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, profile)
}

// UpdateUser changes a profile's name, role, password or active flag
func UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "update")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req UpdateUserRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var profile model.Profile
	if err := scoped(c, tenantID).First(&profile, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve user", zap.Uint("profile_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	role, err := roleByName(c, req.Role)
	if err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.not_found")
		}
		log.Error("Failed to look up role", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	if callerID, _ := middleware.UserID(c); callerID == profile.ID && req.Active != nil && !*req.Active {
		return middleware.JSONError(c, http.StatusForbidden, "errors.forbidden")
	}

	profile.FullName = req.FullName
	profile.RoleID = role.ID
	if req.Active != nil {
		profile.Active = *req.Active
	}
	if req.Password != "" {
		if err := profile.SetPassword(req.Password); err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
		}
	}

	if err := database.GetDB().WithContext(c.Request().Context()).Omit("Role", "Tenant").Save(&profile).Error; err != nil {
		log.Error("Failed to update user", zap.Uint("profile_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	profile.Role = *role

	log.Info("User updated", zap.Uint("profile_id", id), zap.String("role", role.Name))
	return c.JSON(http.StatusOK, profile)
}

// DeactivateUser disables a profile so it can no longer log in. Profiles are never deleted.
func DeactivateUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "deactivate")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}
	if callerID, _ := middleware.UserID(c); callerID == id {
		return middleware.JSONError(c, http.StatusForbidden, "errors.forbidden")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	result := scoped(c, tenantID).Model(&model.Profile{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		log.Error("Failed to deactivate user", zap.Uint("profile_id", id), zap.Error(result.Error))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if result.RowsAffected == 0 {
		return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
	}

	log.Info("User deactivated", zap.Uint("profile_id", id))
	return c.JSON(http.StatusOK, echo.Map{"id": id, "active": false})
}
