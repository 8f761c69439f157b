package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReports(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seed := testutil.SeedTenant(t, db, "vista")
	as := adminOf(seed)

	frame := createProduct(t, db, seed.Tenant.ID, "FR-1", "100")
	lens := createProduct(t, db, seed.Tenant.ID, "LN-1", "20")
	createStock(t, db, seed.Tenant.ID, frame.ID, 3)
	createStock(t, db, seed.Tenant.ID, lens.ID, 4)
	require.NoError(t, db.Create(&model.InventoryItem{TenantID: seed.Tenant.ID, ProductID: lens.ID, Quantity: 0, Status: model.InventorySold}).Error)

	orders := []model.SalesOrder{
		{TenantID: seed.Tenant.ID, Status: model.SaleStatusCompleted, Subtotal: dec("140"), Discount: dec("0"), Tax: dec("14"), Total: dec("154"),
			Items: []model.SalesOrderItem{
				{TenantID: seed.Tenant.ID, ProductID: frame.ID, Quantity: 1, UnitPrice: dec("100"), LineTotal: dec("100")},
				{TenantID: seed.Tenant.ID, ProductID: lens.ID, Quantity: 2, UnitPrice: dec("20"), LineTotal: dec("40")},
			}},
		{TenantID: seed.Tenant.ID, Status: model.SaleStatusCompleted, Subtotal: dec("60"), Discount: dec("10"), Tax: dec("0"), Total: dec("50"),
			Items: []model.SalesOrderItem{
				{TenantID: seed.Tenant.ID, ProductID: lens.ID, Quantity: 3, UnitPrice: dec("20"), LineTotal: dec("60")},
			}},
		{TenantID: seed.Tenant.ID, Status: model.SaleStatusCancelled, Subtotal: dec("100"), Total: dec("100"),
			Items: []model.SalesOrderItem{
				{TenantID: seed.Tenant.ID, ProductID: frame.ID, Quantity: 5, UnitPrice: dec("100"), LineTotal: dec("500")},
			}},
	}
	require.NoError(t, db.Create(&orders).Error)

	t.Run("sales summary", func(t *testing.T) {
		rec := serve(t, as, SalesSummary, http.MethodGet, "/reports/sales-summary", "/reports/sales-summary", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)

		totals := body["totals"].(map[string]interface{})
		assert.Equal(t, float64(2), totals["orders"])
		assert.True(t, dec("204").Equal(dec(totals["total"].(string))))
		assert.True(t, dec("10").Equal(dec(totals["discount"].(string))))

		days := body["days"].([]interface{})
		require.Len(t, days, 1)
		assert.Equal(t, orders[0].CreatedAt.Format("2006-01-02"), days[0].(map[string]interface{})["date"])
	})

	t.Run("top products", func(t *testing.T) {
		rec := serve(t, as, TopProducts, http.MethodGet, "/reports/top-products", "/reports/top-products?limit=1", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		items := decode(t, rec)["items"].([]interface{})
		require.Len(t, items, 1)

		top := items[0].(map[string]interface{})
		assert.Equal(t, "LN-1", top["sku"])
		assert.Equal(t, float64(5), top["quantity"])
		assert.True(t, dec("100").Equal(dec(top["revenue"].(string))))
	})

	t.Run("inventory", func(t *testing.T) {
		rec := serve(t, as, InventoryReport, http.MethodGet, "/reports/inventory", "/reports/inventory", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)

		assert.Len(t, body["by_status"], 2)
		// 3 frames and 4 lenses at cost 10 each
		assert.True(t, dec("70").Equal(dec(body["stock_value"].(string))))
	})

	t.Run("appointments", func(t *testing.T) {
		customer := model.Customer{TenantID: seed.Tenant.ID, FirstName: "Ana", LastName: "Ruiz"}
		require.NoError(t, db.Create(&customer).Error)
		for _, status := range []string{model.AppointmentScheduled, model.AppointmentScheduled, model.AppointmentNoShow} {
			require.NoError(t, db.Create(&model.Appointment{
				TenantID: seed.Tenant.ID, CustomerID: customer.ID, ScheduledAt: time.Now(),
				DurationMinutes: 30, Type: model.AppointmentExam, Status: status,
			}).Error)
		}

		rec := serve(t, as, AppointmentReport, http.MethodGet, "/reports/appointments", "/reports/appointments", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, float64(3), body["total"])
		assert.Len(t, body["by_status"], 2)
	})
}
