package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTotals(t *testing.T) {
	cases := []struct {
		name       string
		subtotal   string
		discount   string
		tipPercent int
		want       Totals
	}{
		{
			name: "discount and tip", subtotal: "1000", discount: "100", tipPercent: 10,
			want: Totals{Subtotal: dec("1000"), DiscountAmount: dec("100"), TipAmount: dec("90"), Total: dec("990")},
		},
		{
			name: "empty bill", subtotal: "0", discount: "100", tipPercent: 10,
			want: Totals{Subtotal: dec("0"), DiscountAmount: dec("0"), TipAmount: dec("0"), Total: dec("0")},
		},
		{
			name: "negative discount ignored", subtotal: "200", discount: "-5", tipPercent: 0,
			want: Totals{Subtotal: dec("200"), DiscountAmount: dec("0"), TipAmount: dec("0"), Total: dec("200")},
		},
		{
			name: "tip percent clamped", subtotal: "100", discount: "0", tipPercent: 250,
			want: Totals{Subtotal: dec("100"), DiscountAmount: dec("0"), TipAmount: dec("100"), Total: dec("200")},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeTotals(dec(tc.subtotal), dec(tc.discount), tc.tipPercent)
			assert.True(t, tc.want.Subtotal.Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, tc.want.DiscountAmount.Equal(got.DiscountAmount), "discount %s", got.DiscountAmount)
			assert.True(t, tc.want.TipAmount.Equal(got.TipAmount), "tip %s", got.TipAmount)
			assert.True(t, tc.want.Total.Equal(got.Total), "total %s", got.Total)
		})
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	account := Account{Subtotal: dec("987.65"), DiscountAmount: dec("98.77"), TipPercent: 7}
	account.Recompute()
	first := account.Total

	for i := 0; i < 5; i++ {
		account.Recompute()
	}
	assert.True(t, first.Equal(account.Total))
	assert.Equal(t, "62.22", account.TipAmount.StringFixed(2))
	assert.Equal(t, "951.10", account.Total.StringFixed(2))
}

func TestDiscountFor(t *testing.T) {
	assert.Equal(t, "250.00", DiscountFor(dec("1000"), 25).StringFixed(2))
	assert.Equal(t, "3.33", DiscountFor(dec("33.33"), 10).StringFixed(2))
	assert.True(t, DiscountFor(dec("0"), 25).IsZero())
	assert.True(t, DiscountFor(dec("100"), 0).IsZero())
	assert.Equal(t, "100.00", DiscountFor(dec("100"), 150).StringFixed(2))
}

func TestStripDiscount(t *testing.T) {
	account := Account{Subtotal: dec("1000"), DiscountPercent: 25, DiscountAmount: dec("250"), TipPercent: 10}
	account.Recompute()
	assert.Equal(t, "825.00", account.Total.StringFixed(2))

	account.StripDiscount()
	assert.Zero(t, account.DiscountPercent)
	assert.True(t, account.DiscountAmount.IsZero())
	assert.Equal(t, "1100.00", account.Total.StringFixed(2))
}

func TestSubtotalSumsLineItems(t *testing.T) {
	items := []LineItem{
		{Name: "Milanesa", Quantity: 2, UnitPrice: dec("450.5"), Amount: dec("901")},
		{Name: "Agua", Quantity: 1, UnitPrice: dec("99.99"), Amount: dec("99.99")},
	}
	assert.Equal(t, "1000.99", Subtotal(items).StringFixed(2))
	assert.True(t, Subtotal(nil).IsZero())
}

func TestStateSets(t *testing.T) {
	assert.True(t, StateConfirmado.Terminal())
	assert.False(t, StatePagoPendiente.Terminal())
	assert.False(t, State("abierta").Valid())
	assert.ElementsMatch(t, []State{StateSolicitada, StatePropinaHabilitada}, PayableStates())
}
