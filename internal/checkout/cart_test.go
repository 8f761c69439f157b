package checkout

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotals(t *testing.T) {
	rate := dec("16")

	tests := []struct {
		name     string
		subtotal string
		discount string
		rate     *decimal.Decimal
		tax      string
		total    string
	}{
		{"no tax rate", "100", "0", nil, "0", "100"},
		{"with tax", "100", "0", &rate, "16", "116"},
		{"discount then tax added", "200", "50", &rate, "32", "182"},
		{"discount larger than subtotal", "10", "25", nil, "0", "0"},
		{"zero subtotal", "0", "0", &rate, "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(dec(tt.subtotal), dec(tt.discount), tt.rate)
			assert.True(t, dec(tt.tax).Equal(got.Tax), "tax %s", got.Tax)
			assert.True(t, dec(tt.total).Equal(got.Total), "total %s", got.Total)
		})
	}
}

func TestComputeTotalsProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		subtotal := decimal.New(r.Int63n(1_000_000), -2)
		discount := decimal.New(r.Int63n(1_000_000), -2)
		rate := decimal.New(r.Int63n(3000), -2)

		got := ComputeTotals(subtotal, discount, &rate)

		wantTax := subtotal.Mul(rate).Div(decimal.NewFromInt(100))
		wantTotal := decimal.Max(subtotal.Sub(discount).Add(wantTax), decimal.Zero)
		require.True(t, wantTax.Equal(got.Tax))
		require.True(t, wantTotal.Equal(got.Total))
		require.False(t, got.Total.IsNegative())
	}
}

func TestCartAddComputesLineTotal(t *testing.T) {
	var c Cart
	line := c.Add(Line{InventoryItemID: 1, Quantity: 3, UnitPrice: dec("19.99")})
	assert.True(t, dec("59.97").Equal(line.LineTotal))

	defaulted := c.Add(Line{InventoryItemID: 2, UnitPrice: dec("5")})
	assert.Equal(t, 1, defaulted.Quantity)
	assert.True(t, dec("64.97").Equal(c.Subtotal()))
}

func TestCartRemoveAtKeepsOtherLines(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 100; round++ {
		var c Cart
		n := 1 + r.Intn(8)
		for i := 0; i < n; i++ {
			c.Add(Line{
				InventoryItemID: uint(i + 1),
				Quantity:        1 + r.Intn(5),
				UnitPrice:       decimal.New(r.Int63n(50000), -2),
			})
		}
		before := append([]Line(nil), c.Lines...)

		idx := r.Intn(n)
		require.NoError(t, c.RemoveAt(idx))
		require.Equal(t, n-1, c.Len())

		remaining := append(append([]Line(nil), before[:idx]...), before[idx+1:]...)
		for i, l := range c.Lines {
			assert.Equal(t, remaining[i].InventoryItemID, l.InventoryItemID)
			assert.True(t, remaining[i].LineTotal.Equal(l.LineTotal))
		}
	}
}

func TestCartRemoveAtDoesNotAliasRemovedSlice(t *testing.T) {
	var c Cart
	c.Add(Line{InventoryItemID: 1, Quantity: 1, UnitPrice: dec("1")})
	c.Add(Line{InventoryItemID: 2, Quantity: 1, UnitPrice: dec("2")})
	c.Add(Line{InventoryItemID: 3, Quantity: 1, UnitPrice: dec("3")})
	snapshot := c.Lines

	require.NoError(t, c.RemoveAt(0))
	assert.Equal(t, uint(1), snapshot[0].InventoryItemID)
	assert.Equal(t, uint(2), c.Lines[0].InventoryItemID)
}

func TestCartRemoveAtOutOfRange(t *testing.T) {
	var c Cart
	c.Add(Line{InventoryItemID: 1, UnitPrice: dec("1")})
	assert.Error(t, c.RemoveAt(-1))
	assert.Error(t, c.RemoveAt(1))
	assert.Equal(t, 1, c.Len())
}

func TestCartTotalsUsesTaxRate(t *testing.T) {
	rate := dec("10")
	c := Cart{Discount: dec("5"), TaxRate: &rate}
	c.Add(Line{InventoryItemID: 1, Quantity: 2, UnitPrice: dec("50")})

	totals := c.Totals()
	assert.True(t, dec("100").Equal(totals.Subtotal))
	assert.True(t, dec("10").Equal(totals.Tax))
	assert.True(t, dec("105").Equal(totals.Total))
}
