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

func TestSupplierDuplicateCode(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seed := testutil.SeedTenant(t, db, "vista")

	supplier := echo.Map{"name": "Lens Lab", "code": "LL"}
	rec := serve(t, adminOf(seed), CreateSupplier, http.MethodPost, "/suppliers", "/suppliers", supplier)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["is_active"])

	rec = serve(t, adminOf(seed), CreateSupplier, http.MethodPost, "/suppliers", "/suppliers", supplier)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, adminOf(seed), ListSuppliers, http.MethodGet, "/suppliers", "/suppliers?q=lens", nil)
	assert.Len(t, decode(t, rec)["items"], 1)
}

func TestPurchaseOrderLifecycle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seed := testutil.SeedTenant(t, db, "vista")
	as := adminOf(seed)

	supplier := model.Supplier{TenantID: seed.Tenant.ID, Name: "Lens Lab", Code: "LL", IsActive: true}
	require.NoError(t, db.Create(&supplier).Error)
	frame := createProduct(t, db, seed.Tenant.ID, "FR-1", "100")
	lens := createProduct(t, db, seed.Tenant.ID, "LN-1", "30")

	rec := serve(t, as, CreatePurchaseOrder, http.MethodPost, "/purchase-orders", "/purchase-orders", echo.Map{
		"supplier_id": supplier.ID,
		"items": []echo.Map{
			{"product_id": frame.ID, "quantity": 2, "unit_cost": "40"},
			{"product_id": lens.ID, "quantity": 3, "unit_cost": "12.50"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.True(t, dec("117.5").Equal(dec(created["total"].(string))))
	assert.Equal(t, model.PurchaseDraft, created["status"])

	id := uintStr(uint(created["id"].(float64)))
	receive := "/purchase-orders/" + id + "/receive"
	status := "/purchase-orders/" + id + "/status"

	// drafts cannot be received
	rec = serve(t, as, ReceivePurchaseOrder, http.MethodPost, "/purchase-orders/:id/receive", receive, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// receiving only happens through the receive endpoint
	rec = serve(t, as, UpdatePurchaseOrderStatus, http.MethodPatch, "/purchase-orders/:id/status", status, echo.Map{"status": "received"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, as, UpdatePurchaseOrderStatus, http.MethodPatch, "/purchase-orders/:id/status", status, echo.Map{"status": "ordered"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(t, as, ReceivePurchaseOrder, http.MethodPost, "/purchase-orders/:id/receive", receive, echo.Map{"location": "back room"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(5), decode(t, rec)["items_received"])

	var stock []model.InventoryItem
	require.NoError(t, db.Where("tenant_id = ?", seed.Tenant.ID).Find(&stock).Error)
	require.Len(t, stock, 5)
	for _, item := range stock {
		assert.Equal(t, 1, item.Quantity)
		assert.Equal(t, model.InventoryAvailable, item.Status)
		assert.Equal(t, "back room", item.Location)
		assert.NotNil(t, item.ReceivedAt)
	}

	rec = serve(t, as, ReceivePurchaseOrder, http.MethodPost, "/purchase-orders/:id/receive", receive, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, as, DeletePurchaseOrder, http.MethodDelete, "/purchase-orders/:id", "/purchase-orders/"+id, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPurchaseOrderRejectsForeignProduct(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	vista := testutil.SeedTenant(t, db, "vista")
	lumen := testutil.SeedTenant(t, db, "lumen")

	supplier := model.Supplier{TenantID: vista.Tenant.ID, Name: "Lens Lab", Code: "LL", IsActive: true}
	require.NoError(t, db.Create(&supplier).Error)
	foreign := createProduct(t, db, lumen.Tenant.ID, "FR-9", "100")

	rec := serve(t, adminOf(vista), CreatePurchaseOrder, http.MethodPost, "/purchase-orders", "/purchase-orders", echo.Map{
		"supplier_id": supplier.ID,
		"items":       []echo.Map{{"product_id": foreign.ID, "quantity": 1, "unit_cost": "1"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(t, adminOf(vista), CreatePurchaseOrder, http.MethodPost, "/purchase-orders", "/purchase-orders", echo.Map{
		"supplier_id": supplier.ID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPurchaseOrderQuantityBounds(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seed := testutil.SeedTenant(t, db, "vista")

	supplier := model.Supplier{TenantID: seed.Tenant.ID, Name: "Lens Lab", Code: "LL", IsActive: true}
	require.NoError(t, db.Create(&supplier).Error)
	lens := createProduct(t, db, seed.Tenant.ID, "LN-1", "30")

	rec := serve(t, adminOf(seed), CreatePurchaseOrder, http.MethodPost, "/purchase-orders", "/purchase-orders", echo.Map{
		"supplier_id": supplier.ID,
		"items":       []echo.Map{{"product_id": lens.ID, "quantity": 10000000, "unit_cost": "1"}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "lte=1000", decode(t, rec)["fields"].(map[string]interface{})["items[0].quantity"])

	lines := make([]echo.Map, 101)
	for i := range lines {
		lines[i] = echo.Map{"product_id": lens.ID, "quantity": 1, "unit_cost": "1"}
	}
	rec = serve(t, adminOf(seed), CreatePurchaseOrder, http.MethodPost, "/purchase-orders", "/purchase-orders", echo.Map{
		"supplier_id": supplier.ID,
		"items":       lines,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(t, adminOf(seed), CreatePurchaseOrder, http.MethodPost, "/purchase-orders", "/purchase-orders", echo.Map{
		"supplier_id": supplier.ID,
		"items":       []echo.Map{{"product_id": lens.ID, "quantity": 1000, "unit_cost": "1"}},
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var count int64
	require.NoError(t, db.Model(&model.PurchaseOrder{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
