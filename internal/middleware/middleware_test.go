package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/internal/testutil"
	"github.com/opticshop/optics/pkg/config"
	"github.com/opticshop/optics/pkg/jwtutil"
	"github.com/opticshop/optics/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "middleware-test", ExpirationHours: 1})
}

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"tenant_id":    c.Get(KeyTenantID),
		"user_id":      c.Get(KeyUserID),
		"is_superuser": IsSuperuser(c),
		"locale":       Locale(c),
	})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func token(t *testing.T, userID uint, tenantID *uint, role string, superuser bool) string {
	t.Helper()
	tok, err := jwtutil.GenerateToken("u@shop.test", userID, tenantID, role, superuser)
	require.NoError(t, err)
	return tok
}

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware)
	e.GET("/", okHandler)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec = serve(e, req)
	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))
}

func TestLocaleMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(LocaleMiddleware)
	e.GET("/", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "es-MX,es;q=0.8")
	rec := serve(e, req)
	assert.Equal(t, "es", decode(t, rec)["locale"])
	assert.Equal(t, "es", rec.Header().Get("Content-Language"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "es")
	req.AddCookie(&http.Cookie{Name: CookieLocale, Value: "en"})
	assert.Equal(t, "en", decode(t, serve(e, req))["locale"])
}

func TestAuthMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(LocaleMiddleware, AuthMiddleware)
	e.GET("/", okHandler)
	tenantID := uint(4)

	t.Run("missing token", func(t *testing.T) {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Authentication required", decode(t, rec)["error"])
	})

	t.Run("localized error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "es")
		req.Header.Set(echo.HeaderAuthorization, "Bearer nope")
		rec := serve(e, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Token no válido o vencido", decode(t, rec)["error"])
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, 9, &tenantID, model.RoleCashier, false))
		rec := serve(e, req)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, float64(9), body["user_id"])
		assert.Equal(t, float64(4), body["tenant_id"])
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: token(t, 2, nil, "", true)})
		rec := serve(e, req)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Nil(t, body["tenant_id"])
		assert.Equal(t, true, body["is_superuser"])
	})
}

func TestRequireTenantContext(t *testing.T) {
	e := echo.New()
	e.Use(AuthMiddleware, RequireTenantContext)
	e.GET("/", okHandler)

	before := promtest.ToFloat64(prometheus.TenantContextMissingCounter)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, 1, nil, "", true))
	rec := serve(e, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, before+1, promtest.ToFloat64(prometheus.TenantContextMissingCounter))
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.Use(AuthMiddleware)
	e.GET("/", okHandler, RequireRole(model.RoleAdmin, model.RoleManager))
	tenantID := uint(1)

	cases := []struct {
		role      string
		superuser bool
		want      int
	}{
		{model.RoleAdmin, false, http.StatusOK},
		{model.RoleManager, false, http.StatusOK},
		{model.RoleCashier, false, http.StatusForbidden},
		{"", true, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, 1, &tenantID, tc.role, tc.superuser))
		assert.Equal(t, tc.want, serve(e, req).Code, "role %q superuser %v", tc.role, tc.superuser)
	}
}

func TestRequireSuperuser(t *testing.T) {
	e := echo.New()
	e.Use(AuthMiddleware)
	e.GET("/", okHandler, RequireSuperuser)
	tenantID := uint(1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, 1, &tenantID, model.RoleAdmin, false))
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, 1, nil, "", true))
	assert.Equal(t, http.StatusOK, serve(e, req).Code)
}

func TestTenantMiddleware(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	a := testutil.SeedTenant(t, db, "alpha")
	b := testutil.SeedTenant(t, db, "beta")

	e := echo.New()
	e.Use(AuthMiddleware, TenantMiddleware)
	e.GET("/", okHandler)

	t.Run("superuser selects by cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, 1, nil, "", true))
		req.AddCookie(&http.Cookie{Name: CookieSelectedTenantID, Value: "2"})
		rec := serve(e, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(b.Tenant.ID), decode(t, rec)["tenant_id"])

		cookies := map[string]string{}
		for _, ck := range rec.Result().Cookies() {
			cookies[ck.Name] = ck.Value
		}
		assert.Equal(t, "2", cookies[CookieTenantID])
		assert.Equal(t, "true", cookies[CookieIsSuperuser])
	})

	t.Run("superuser header wins over cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, 1, nil, "", true))
		req.Header.Set(HeaderTenantID, "1")
		req.AddCookie(&http.Cookie{Name: CookieSelectedTenantID, Value: "2"})
		assert.Equal(t, float64(a.Tenant.ID), decode(t, serve(e, req))["tenant_id"])
	})

	t.Run("unknown tenant ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, 1, nil, "", true))
		req.Header.Set(HeaderTenantID, "99")
		assert.Nil(t, decode(t, serve(e, req))["tenant_id"])
	})

	t.Run("regular profile cannot switch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, 5, &a.Tenant.ID, model.RoleAdmin, false))
		req.Header.Set(HeaderTenantID, "2")
		assert.Equal(t, float64(a.Tenant.ID), decode(t, serve(e, req))["tenant_id"])
	})

	t.Run("deactivated profile rejected with a valid token", func(t *testing.T) {
		tok := token(t, a.Cashier.ID, &a.Tenant.ID, model.RoleCashier, false)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
		require.Equal(t, http.StatusOK, serve(e, req).Code)

		require.NoError(t, db.Model(&model.Profile{}).Where("id = ?", a.Cashier.ID).Update("active", false).Error)

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
		rec := serve(e, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "This account is not active", decode(t, rec)["error"])
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1})
	e := echo.New()
	e.Use(rl.Middleware())
	e.GET("/", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5001"
	assert.Equal(t, http.StatusTooManyRequests, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	assert.Equal(t, 0, rl.Sweep(time.Hour))
	assert.Equal(t, 2, rl.Sweep(-time.Second))
}

func TestHTTPMetricsUsesRoutePath(t *testing.T) {
	e := echo.New()
	e.Use(HTTPMetrics)
	e.GET("/items/:id", okHandler)

	counter := prometheus.HttpRequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "200")
	before := promtest.ToFloat64(counter)
	serve(e, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	serve(e, httptest.NewRequest(http.MethodGet, "/items/2", nil))
	assert.Equal(t, before+2, promtest.ToFloat64(counter))
}

func TestRequestLoggerHandlesErrors(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware, RequestLogger)
	e.GET("/", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestValidatorFieldErrors(t *testing.T) {
	type line struct {
		Quantity int `json:"quantity" validate:"gte=1"`
	}
	type request struct {
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"omitempty,email"`
		Items []line `json:"items" validate:"dive"`
	}

	v := NewValidator()
	err := v.Validate(&request{Email: "not-an-email", Items: []line{{Quantity: 0}}})
	require.Error(t, err)

	fields := FieldErrors(err)
	assert.Equal(t, "required", fields["name"])
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "gte=1", fields["items[0].quantity"])

	assert.NoError(t, v.Validate(&request{Name: "ok"}))
	assert.Nil(t, FieldErrors(assert.AnError))
}
