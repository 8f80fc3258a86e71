package orders

import (
	"machshop/internal/core/types"
)

// Totals is the result of a totals calculation over an order's table parts.
//
// The current-view figures (Subtotal, VATAmount, TotalBeforeDiscount) cover
// active quantity only. FinalTotal covers the original ordered quantity:
// it is the amount the customer was charged, and item returns never shrink
// it. Revenue reduction for returns flows through approved refund records
// instead, so the two ledgers cannot double-count.
type Totals struct {
	Subtotal            types.Money `json:"subtotal"`
	VATAmount           types.Money `json:"vatAmount"`
	TotalBeforeDiscount types.Money `json:"totalBeforeDiscount"`
	DiscountAmount      types.Money `json:"discountAmount"`
	ExtrasTotal         types.Money `json:"extrasTotal"`
	FinalTotal          types.Money `json:"finalTotal"`

	OriginalSubtotal            types.Money `json:"-"`
	OriginalVATAmount           types.Money `json:"-"`
	OriginalTotalBeforeDiscount types.Money `json:"-"`
}

// CalculateTotals computes order totals from line items, an absolute discount
// and extra charges. Pure function: no I/O, no hidden state, identical output
// for identical input.
//
// The discount is clamped to the original pre-discount total so the result
// can never go negative. An empty item set yields zeros, which keeps
// recomputation of an order under edit safe.
//
// Persisted figures are rounded to 2 decimal places, halves up. The frozen
// per-unit values on each line stay unrounded so accumulation across returns
// does not compound rounding error.
func CalculateTotals(items []LineItem, discountAmount types.Money, extras []ExtraCharge) Totals {
	var (
		currentBase  = types.Zero()
		currentVAT   = types.Zero()
		originalBase = types.Zero()
		originalVAT  = types.Zero()
	)

	for i := range items {
		li := &items[i]
		original := types.NewMoneyFromInt(int64(li.Quantity))
		active := types.NewMoneyFromInt(int64(li.ActiveQuantity()))

		originalBase = originalBase.Add(li.BasePerUnit.Mul(original))
		originalVAT = originalVAT.Add(li.VATPerUnit.Mul(original))

		currentBase = currentBase.Add(li.BasePerUnit.Mul(active))
		currentVAT = currentVAT.Add(li.VATPerUnit.Mul(active))
	}

	extrasTotal := types.Zero()
	for i := range extras {
		extrasTotal = extrasTotal.Add(extras[i].Amount)
	}

	originalTotal := originalBase.Add(originalVAT)

	if discountAmount.IsNegative() {
		discountAmount = types.Zero()
	}
	discountAmount = types.MinMoney(discountAmount, originalTotal)

	t := Totals{
		Subtotal:            types.RoundMoney(currentBase),
		VATAmount:           types.RoundMoney(currentVAT),
		TotalBeforeDiscount: types.RoundMoney(currentBase.Add(currentVAT)),
		DiscountAmount:      types.RoundMoney(discountAmount),
		ExtrasTotal:         types.RoundMoney(extrasTotal),

		OriginalSubtotal:            types.RoundMoney(originalBase),
		OriginalVATAmount:           types.RoundMoney(originalVAT),
		OriginalTotalBeforeDiscount: types.RoundMoney(originalTotal),
	}

	t.FinalTotal = types.RoundMoney(originalTotal.Sub(discountAmount).Add(extrasTotal))
	return t
}

// originalTotalBeforeDiscount sums the frozen per-unit values over the
// original ordered quantity.
func originalTotalBeforeDiscount(items []LineItem) types.Money {
	total := types.Zero()
	for i := range items {
		li := &items[i]
		qty := types.NewMoneyFromInt(int64(li.Quantity))
		total = total.Add(li.UnitPrice.Mul(qty))
	}
	return total
}
