package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/internal/testutil"
	"github.com/opticshop/optics/pkg/config"
	"github.com/opticshop/optics/pkg/jwtutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "handler-test-key", ExpirationHours: 1})
}

// actor is who a test request runs as
type actor struct {
	userID    uint
	tenantID  uint
	role      string
	superuser bool
}

func adminOf(seed testutil.Seed) actor {
	return actor{userID: seed.Admin.ID, tenantID: seed.Tenant.ID, role: model.RoleAdmin}
}

func cashierOf(seed testutil.Seed) actor {
	return actor{userID: seed.Cashier.ID, tenantID: seed.Tenant.ID, role: model.RoleCashier}
}

// serve registers h on route and performs one request as the actor
func serve(t *testing.T, as actor, h echo.HandlerFunc, method, route, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.Validator = middleware.NewValidator()
	e.Add(method, route, h, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if as.userID != 0 {
				c.Set(middleware.KeyUserID, as.userID)
				c.Set(middleware.KeyRole, as.role)
				c.Set(middleware.KeyIsSuperuser, as.superuser)
			}
			if as.tenantID != 0 {
				c.Set(middleware.KeyTenantID, as.tenantID)
			}
			return next(c)
		}
	})

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func uintStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createProduct(t *testing.T, db *gorm.DB, tenantID uint, sku, price string) model.Product {
	t.Helper()
	p := model.Product{TenantID: tenantID, Name: "Product " + sku, SKU: sku, Category: model.CategoryFrames, Price: dec(price), Cost: dec("10"), Active: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func createStock(t *testing.T, db *gorm.DB, tenantID, productID uint, qty int) model.InventoryItem {
	t.Helper()
	item := model.InventoryItem{TenantID: tenantID, ProductID: productID, Quantity: qty, Status: model.InventoryAvailable}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func TestHandlersRequireTenant(t *testing.T) {
	testutil.NewSQLiteDB(t)

	rec := serve(t, actor{userID: 1, role: model.RoleAdmin}, ListCustomers, http.MethodGet, "/customers", "/customers", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, decode(t, rec), "error")
}

func TestCustomerCRUDAndSearch(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seed := testutil.SeedTenant(t, db, "vista")
	as := adminOf(seed)

	for _, name := range [][2]string{{"Ana", "García"}, {"Bruno", "Diaz"}, {"Carla", "Garcilaso"}} {
		rec := serve(t, as, CreateCustomer, http.MethodPost, "/customers", "/customers",
			echo.Map{"first_name": name[0], "last_name": name[1]})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := serve(t, as, ListCustomers, http.MethodGet, "/customers", "/customers?q=GARC", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["items"], 2)
	assert.Equal(t, float64(2), body["pagination"].(map[string]interface{})["total"])

	rec = serve(t, as, ListCustomers, http.MethodGet, "/customers", "/customers?q=diaz,%20bru", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = serve(t, as, ListCustomers, http.MethodGet, "/customers", "/customers?limit=2", nil)
	body = decode(t, rec)
	assert.Len(t, body["items"], 2)
	assert.Equal(t, float64(2), body["pagination"].(map[string]interface{})["total_pages"])

	rec = serve(t, as, CreateCustomer, http.MethodPost, "/customers", "/customers", echo.Map{"first_name": "X"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["fields"], "last_name")
}

func TestCustomerSearchPastLastPage(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seed := testutil.SeedTenant(t, db, "vista")
	require.NoError(t, db.Create(&model.Customer{TenantID: seed.Tenant.ID, FirstName: "Bruno", LastName: "Diaz"}).Error)

	for _, target := range []string{
		"/customers?q=diaz&page=500000000000000000",
		"/customers?q=diaz&page=99999999999999999999",
		"/customers?page=500000000000000000",
		"/customers?q=diaz&page=3&limit=100",
	} {
		rec := serve(t, adminOf(seed), ListCustomers, http.MethodGet, "/customers", target, nil)
		require.Equal(t, http.StatusOK, rec.Code, target)
		body := decode(t, rec)
		assert.Empty(t, body["items"], target)
		assert.Equal(t, float64(1), body["pagination"].(map[string]interface{})["total"], target)
	}

	rec := serve(t, adminOf(seed), ListCustomers, http.MethodGet, "/customers", "/customers?q=diaz&page=500000000000000000", nil)
	assert.Equal(t, float64(maxPage), decode(t, rec)["pagination"].(map[string]interface{})["current_page"])
}

func TestTenantIsolation(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	vista := testutil.SeedTenant(t, db, "vista")
	lumen := testutil.SeedTenant(t, db, "lumen")

	customer := model.Customer{TenantID: vista.Tenant.ID, FirstName: "Ana", LastName: "Ruiz"}
	require.NoError(t, db.Create(&customer).Error)
	target := "/customers/" + uintStr(customer.ID)

	rec := serve(t, adminOf(vista), GetCustomer, http.MethodGet, "/customers/:id", target, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, adminOf(lumen), GetCustomer, http.MethodGet, "/customers/:id", target, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, adminOf(lumen), DeleteCustomer, http.MethodDelete, "/customers/:id", target, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, adminOf(lumen), ListCustomers, http.MethodGet, "/customers", "/customers", nil)
	assert.Empty(t, decode(t, rec)["items"])
}

func TestProductDuplicateSKU(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	vista := testutil.SeedTenant(t, db, "vista")
	lumen := testutil.SeedTenant(t, db, "lumen")

	product := echo.Map{"name": "Aviator", "sku": "FR-1", "category": "frames", "price": "120"}
	rec := serve(t, adminOf(vista), CreateProduct, http.MethodPost, "/products", "/products", product)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(t, adminOf(vista), CreateProduct, http.MethodPost, "/products", "/products", product)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// SKUs are unique per tenant only
	rec = serve(t, adminOf(lumen), CreateProduct, http.MethodPost, "/products", "/products", product)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(t, adminOf(vista), CreateProduct, http.MethodPost, "/products", "/products",
		echo.Map{"name": "Bad", "sku": "X", "category": "hats"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDecrementInventory(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seed := testutil.SeedTenant(t, db, "vista")
	product := createProduct(t, db, seed.Tenant.ID, "LN-1", "35")
	item := createStock(t, db, seed.Tenant.ID, product.ID, 2)
	target := "/inventory/" + uintStr(item.ID) + "/decrement"

	rec := serve(t, adminOf(seed), DecrementInventory, http.MethodPost, "/inventory/:id/decrement", target, echo.Map{"quantity": 3})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["available"])

	rec = serve(t, adminOf(seed), DecrementInventory, http.MethodPost, "/inventory/:id/decrement", target, echo.Map{"quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reloaded model.InventoryItem
	require.NoError(t, db.First(&reloaded, item.ID).Error)
	assert.Equal(t, 0, reloaded.Quantity)
	assert.Equal(t, model.InventorySold, reloaded.Status)
}

func TestHealthCheckPingsDatabase(t *testing.T) {
	testutil.NewSQLiteDB(t)

	rec := serve(t, actor{}, HealthCheck, http.MethodGet, "/health", "/health?check=db", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["db_status"])
}

func TestTranslations(t *testing.T) {
	rec := serve(t, actor{}, Translations, http.MethodGet, "/i18n/:locale", "/i18n/es", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "es", body["locale"])
	assert.NotEmpty(t, body["messages"].(map[string]interface{})["errors.empty_cart"])

	rec = serve(t, actor{}, Translations, http.MethodGet, "/i18n/:locale", "/i18n/xx", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
