package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TipAmount      decimal.Decimal
	Total          decimal.Decimal
}

// ComputeTotals is the single place bill arithmetic lives. Every amount is
// rounded to cents as it is derived, so recomputation is idempotent:
//
//	base  = max(subtotal - discount, 0)
//	tip   = round2(base * tipPercent / 100)
//	total = round2(base + tip)
func ComputeTotals(subtotal, discount decimal.Decimal, tipPercent int) Totals {
	subtotal = round2(decimal.Max(subtotal, decimal.Zero))
	discount = round2(discount)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	base := decimal.Max(subtotal.Sub(discount), decimal.Zero)
	tip := round2(base.Mul(decimal.NewFromInt(int64(clampPercent(tipPercent)))).Div(hundred))
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TipAmount:      tip,
		Total:          round2(base.Add(tip)),
	}
}

// DiscountFor is the amount a percent discount takes off a subtotal.
func DiscountFor(subtotal decimal.Decimal, percent int) decimal.Decimal {
	if percent <= 0 || !subtotal.IsPositive() {
		return decimal.Zero
	}
	amount := round2(subtotal.Mul(decimal.NewFromInt(int64(clampPercent(percent)))).Div(hundred))
	return decimal.Min(amount, round2(subtotal))
}

// Subtotal sums the line item amounts.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount)
	}
	return round2(sum)
}

// Recompute rederives the stored amounts from subtotal, discount and tip percent.
func (a *Account) Recompute() {
	t := ComputeTotals(a.Subtotal, a.DiscountAmount, a.TipPercent)
	a.Subtotal = t.Subtotal
	a.DiscountAmount = t.DiscountAmount
	a.TipAmount = t.TipAmount
	a.Total = t.Total
}

// StripDiscount removes a discount the customer no longer holds.
func (a *Account) StripDiscount() {
	a.DiscountPercent = 0
	a.DiscountAmount = decimal.Zero
	a.Recompute()
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
