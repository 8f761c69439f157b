package handler

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutEmptyCartNeverTouchesDatabase(t *testing.T) {
	mock := testutil.NewMockDB(t)
	as := actor{userID: 1, tenantID: 1, role: model.RoleCashier}

	rec := serve(t, as, Checkout, http.MethodPost, "/sales/checkout", "/sales/checkout", echo.Map{"items": []interface{}{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Add at least one item before checking out", decode(t, rec)["error"])

	rec = serve(t, as, Checkout, http.MethodPost, "/sales/checkout", "/sales/checkout", echo.Map{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(t, as, QuoteSale, http.MethodPost, "/sales/quote", "/sales/quote", echo.Map{"discount": "5"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	require.NoError(t, mock.Mock.ExpectationsWereMet())
}

func TestCheckoutRecordsSaleWithWarnings(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seed := testutil.SeedTenant(t, db, "vista")
	frame := createProduct(t, db, seed.Tenant.ID, "FR-1", "100")
	lens := createProduct(t, db, seed.Tenant.ID, "LN-1", "25")
	frameStock := createStock(t, db, seed.Tenant.ID, frame.ID, 1)
	lensStock := createStock(t, db, seed.Tenant.ID, lens.ID, 1)
	require.NoError(t, db.Create(&model.TaxRate{TenantID: seed.Tenant.ID, Name: "VAT", Rate: dec("10"), IsDefault: true}).Error)

	rec := serve(t, cashierOf(seed), Checkout, http.MethodPost, "/sales/checkout", "/sales/checkout", echo.Map{
		"items": []echo.Map{
			{"inventory_item_id": frameStock.ID, "quantity": 1},
			{"inventory_item_id": lensStock.ID, "quantity": 2},
		},
		"discount":       "20",
		"payment_method": "card",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	warnings := body["warnings"].([]interface{})
	require.Len(t, warnings, 1)
	assert.Equal(t, float64(lensStock.ID), warnings[0].(map[string]interface{})["inventory_item_id"])

	// 100 + 2*25 = 150; tax 15; total 150 - 20 + 15
	order := body["order"].(map[string]interface{})
	assert.True(t, dec("145").Equal(dec(order["total"].(string))))
	assert.Equal(t, model.SaleStatusCompleted, order["status"])

	var payment model.Payment
	require.NoError(t, db.Where("sales_order_id = ?", uint(order["id"].(float64))).First(&payment).Error)
	assert.Equal(t, model.PaymentCard, payment.Method)

	var sold model.InventoryItem
	require.NoError(t, db.First(&sold, frameStock.ID).Error)
	assert.Equal(t, model.InventorySold, sold.Status)
}

func TestCheckoutUnknownItem(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seed := testutil.SeedTenant(t, db, "vista")

	rec := serve(t, cashierOf(seed), Checkout, http.MethodPost, "/sales/checkout", "/sales/checkout", echo.Map{
		"items": []echo.Map{{"inventory_item_id": 999}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var count int64
	require.NoError(t, db.Model(&model.SalesOrder{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestQuoteSale(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seed := testutil.SeedTenant(t, db, "vista")
	frame := createProduct(t, db, seed.Tenant.ID, "FR-1", "80")
	stock := createStock(t, db, seed.Tenant.ID, frame.ID, 5)

	rec := serve(t, cashierOf(seed), QuoteSale, http.MethodPost, "/sales/quote", "/sales/quote", echo.Map{
		"items":    []echo.Map{{"inventory_item_id": stock.ID, "quantity": 2}},
		"discount": "500",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	totals := decode(t, rec)["totals"].(map[string]interface{})
	assert.True(t, dec("160").Equal(dec(totals["subtotal"].(string))))
	assert.True(t, dec("0").Equal(dec(totals["total"].(string))))

	var reloaded model.InventoryItem
	require.NoError(t, db.First(&reloaded, stock.ID).Error)
	assert.Equal(t, 5, reloaded.Quantity)
}

func TestUpdateSaleStatus(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seed := testutil.SeedTenant(t, db, "vista")
	order := model.SalesOrder{TenantID: seed.Tenant.ID, ProfileID: seed.Cashier.ID, Status: model.SaleStatusCompleted}
	require.NoError(t, db.Create(&order).Error)
	target := "/sales/" + uintStr(order.ID) + "/status"

	rec := serve(t, adminOf(seed), UpdateSaleStatus, http.MethodPatch, "/sales/:id/status", target, echo.Map{"status": "returned"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(t, adminOf(seed), UpdateSaleStatus, http.MethodPatch, "/sales/:id/status", target, echo.Map{"status": "completed"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, adminOf(seed), UpdateSaleStatus, http.MethodPatch, "/sales/:id/status", target, echo.Map{"status": "lost"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
