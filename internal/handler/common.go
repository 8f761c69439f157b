package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = 1000000
	dateLayout      = "2006-01-02"
)

var errBadDate = errors.New("invalid date")

// tenantID reads the tenant resolved by the middleware chain
func tenantID(c echo.Context) (uint, bool) {
	id, ok := middleware.TenantID(c)
	if !ok {
		logger.FromContext(c).Warn("Missing tenant_id in context")
		prometheus.TenantContextMissingCounter.Inc()
	}
	return id, ok
}

func tenantRequired(c echo.Context) error {
	return middleware.JSONError(c, http.StatusForbidden, "errors.tenant_required")
}

// scoped starts a new query chain limited to the tenant's rows. Chains are
// not reusable once conditions are added, so call it once per query.
func scoped(c echo.Context, tenantID uint) *gorm.DB {
	return database.GetDB().WithContext(c.Request().Context()).Scopes(database.TenantScope(tenantID))
}

// paramID parses a positive numeric path parameter
func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// queryID parses an optional numeric query parameter
func queryID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.QueryParam(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return page, limit
}

func paginated(items interface{}, page, limit int, total int64) echo.Map {
	return echo.Map{
		"items": items,
		"pagination": echo.Map{
			"current_page": page,
			"limit":        limit,
			"total":        total,
			"total_pages":  (int(total) + limit - 1) / limit,
		},
	}
}

// bindAndValidate binds the body into req and validates it. When it returns
// false the error response has already been written.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		logger.FromContext(c).Warn("Invalid request data", zap.Error(err))
		return false, middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_request")
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":  middleware.Translate(c, "errors.validation_failed"),
			"fields": middleware.FieldErrors(err),
		})
	}
	return true, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, errBadDate
}

// dateRange reads the from/to query parameters. A bare date in "to" covers the whole day.
func dateRange(c echo.Context) (from, to *time.Time, err error) {
	if raw := c.QueryParam("from"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return nil, nil, err
		}
		if len(raw) == len(dateLayout) {
			t = t.Add(24 * time.Hour)
		}
		to = &t
	}
	return from, to, nil
}

// applyDateRange filters column into [from, to)
func applyDateRange(db *gorm.DB, column string, from, to *time.Time) *gorm.DB {
	if from != nil {
		db = db.Where(column+" >= ?", *from)
	}
	if to != nil {
		db = db.Where(column+" < ?", *to)
	}
	return db
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// likePattern builds a case-insensitive LIKE pattern
func likePattern(q string) string {
	return "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
}

func deleted(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": middleware.Translate(c, "messages.deleted"),
	})
}
