package checkout

import (
	"context"
	"testing"

	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	tenantID uint
	frame    model.InventoryItem
	lens     model.InventoryItem
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	seed := testutil.SeedTenant(t, db, "vista")

	frameProduct := model.Product{TenantID: seed.Tenant.ID, Name: "Aviator", SKU: "FR-1", Category: model.CategoryFrames, Price: dec("120.00"), Cost: dec("40")}
	lensProduct := model.Product{TenantID: seed.Tenant.ID, Name: "Single vision", SKU: "LN-1", Category: model.CategoryLenses, Price: dec("35.50"), Cost: dec("10")}
	require.NoError(t, db.Create(&frameProduct).Error)
	require.NoError(t, db.Create(&lensProduct).Error)

	frame := model.InventoryItem{TenantID: seed.Tenant.ID, ProductID: frameProduct.ID, Quantity: 1, Status: model.InventoryAvailable}
	lens := model.InventoryItem{TenantID: seed.Tenant.ID, ProductID: lensProduct.ID, Quantity: 10, Status: model.InventoryAvailable}
	require.NoError(t, db.Create(&frame).Error)
	require.NoError(t, db.Create(&lens).Error)

	return fixture{db: db, tenantID: seed.Tenant.ID, frame: frame, lens: lens}
}

func TestCheckoutEmptyCartMakesNoDatabaseCall(t *testing.T) {
	mock := testutil.NewMockDB(t)

	_, err := New(mock.DB).Checkout(context.Background(), Request{TenantID: 1})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = New(mock.DB).Quote(context.Background(), Request{TenantID: 1})
	assert.ErrorIs(t, err, ErrEmptyCart)

	require.NoError(t, mock.Mock.ExpectationsWereMet())
}

func TestCheckoutSavesOrderAndDecrements(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&model.TaxRate{TenantID: f.tenantID, Name: "VAT", Rate: dec("10"), IsDefault: true}).Error)

	res, err := New(f.db).Checkout(context.Background(), Request{
		TenantID:  f.tenantID,
		ProfileID: 1,
		Items: []ItemRequest{
			{InventoryItemID: f.frame.ID, Quantity: 1},
			{InventoryItemID: f.lens.ID, Quantity: 2},
		},
		Discount:      dec("11"),
		PaymentMethod: model.PaymentCard,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	// 120 + 2*35.50 = 191; tax 19.1; total 191 - 11 + 19.1
	assert.True(t, dec("191").Equal(res.Order.Subtotal))
	assert.True(t, dec("19.1").Equal(res.Order.Tax))
	assert.True(t, dec("199.1").Equal(res.Order.Total))
	assert.Equal(t, model.SaleStatusCompleted, res.Order.Status)

	var items []model.SalesOrderItem
	require.NoError(t, f.db.Where("sales_order_id = ?", res.Order.ID).Find(&items).Error)
	assert.Len(t, items, 2)

	var payment model.Payment
	require.NoError(t, f.db.Where("sales_order_id = ?", res.Order.ID).First(&payment).Error)
	assert.True(t, res.Order.Total.Equal(payment.Amount))
	assert.Equal(t, model.PaymentCard, payment.Method)

	var frame, lens model.InventoryItem
	require.NoError(t, f.db.First(&frame, f.frame.ID).Error)
	require.NoError(t, f.db.First(&lens, f.lens.ID).Error)
	assert.Equal(t, 0, frame.Quantity)
	assert.Equal(t, model.InventorySold, frame.Status)
	assert.Equal(t, 8, lens.Quantity)
	assert.Equal(t, model.InventoryAvailable, lens.Status)
}

func TestCheckoutDecrementFailureIsWarning(t *testing.T) {
	f := newFixture(t)

	res, err := New(f.db).Checkout(context.Background(), Request{
		TenantID: f.tenantID,
		Items: []ItemRequest{
			{InventoryItemID: f.frame.ID, Quantity: 3},
			{InventoryItemID: f.lens.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, f.frame.ID, res.Warnings[0].InventoryItemID)
	assert.Contains(t, res.Warnings[0].Error, ErrInsufficientStock.Error())

	var lens model.InventoryItem
	require.NoError(t, f.db.First(&lens, f.lens.ID).Error)
	assert.Equal(t, 9, lens.Quantity)

	var count int64
	require.NoError(t, f.db.Model(&model.SalesOrder{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCheckoutWithoutTaxRate(t *testing.T) {
	f := newFixture(t)

	res, err := New(f.db).Checkout(context.Background(), Request{
		TenantID: f.tenantID,
		Items:    []ItemRequest{{InventoryItemID: f.lens.ID}},
	})
	require.NoError(t, err)
	assert.True(t, res.Order.Tax.IsZero())
	assert.True(t, dec("35.5").Equal(res.Order.Total))
	assert.Equal(t, 1, res.Order.Items[0].Quantity)
	assert.Equal(t, model.PaymentCash, res.Order.Payments[0].Method)
}

func TestCheckoutRejectsOtherTenantRows(t *testing.T) {
	f := newFixture(t)
	other := testutil.SeedTenant(t, f.db, "other")

	_, err := New(f.db).Checkout(context.Background(), Request{
		TenantID: other.Tenant.ID,
		Items:    []ItemRequest{{InventoryItemID: f.lens.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrItemNotFound)

	foreignCustomer := model.Customer{TenantID: other.Tenant.ID, FirstName: "X", LastName: "Y"}
	require.NoError(t, f.db.Create(&foreignCustomer).Error)
	_, err = New(f.db).Checkout(context.Background(), Request{
		TenantID:   f.tenantID,
		CustomerID: &foreignCustomer.ID,
		Items:      []ItemRequest{{InventoryItemID: f.lens.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	var count int64
	require.NoError(t, f.db.Model(&model.SalesOrder{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDecrement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := Decrement(ctx, f.db, f.tenantID, f.lens.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity)

	item, err = Decrement(ctx, f.db, f.tenantID, f.lens.ID, 7)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 6, item.Quantity)

	item, err = Decrement(ctx, f.db, f.tenantID, f.lens.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)
	assert.Equal(t, model.InventorySold, item.Status)

	_, err = Decrement(ctx, f.db, f.tenantID, f.lens.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = Decrement(ctx, f.db, f.tenantID+99, f.lens.ID, 1)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestConcurrentDecrementsNeverGoNegative(t *testing.T) {
	f := newFixture(t)

	lines := make([]Line, 15)
	for i := range lines {
		lines[i] = Line{InventoryItemID: f.lens.ID, Quantity: 1}
	}
	warnings := New(f.db).decrementAll(context.Background(), f.tenantID, lines)
	assert.Len(t, warnings, 5)

	var lens model.InventoryItem
	require.NoError(t, f.db.First(&lens, f.lens.ID).Error)
	assert.Equal(t, 0, lens.Quantity)
	assert.Equal(t, model.InventorySold, lens.Status)
}
