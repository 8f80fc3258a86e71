package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machshop/internal/core/id"
	"machshop/internal/core/types"
	"machshop/internal/domain/catalogs/customer"
)

func moneyEqual(t *testing.T, want string, got types.Money, msg string) {
	t.Helper()
	if !got.Equal(types.MustMoney(want)) {
		t.Errorf("%s: want %s, got %s", msg, want, got)
	}
}

func testSnapshot(price string, vatPct int64) MachineSnapshot {
	return MachineSnapshot{
		MachineID:      id.New(),
		Code:           "MCH-00001",
		Name:           "Vertical Form Fill Seal Machine",
		Category:       "Packing",
		UnitPrice:      types.MustMoney(price),
		VATPercentage:  types.NewMoneyFromInt(vatPct),
		WarrantyMonths: 12,
	}
}

func testOrder(t *testing.T, price string, vatPct int64, qty int) *Order {
	t.Helper()
	o := NewOrder(id.New(), customer.Info{Name: "Test Customer"})
	o.AddLine(testSnapshot(price, vatPct), qty)
	o.RecalculateTotals()
	return o
}

func TestCalculateTotals_SingleLine(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	line := &o.Items[0]

	moneyEqual(t, "100", line.BasePerUnit, "basePerUnit")
	moneyEqual(t, "18", line.VATPerUnit, "vatPerUnit")
	moneyEqual(t, "1000", o.Subtotal, "subtotal")
	moneyEqual(t, "180", o.VATAmount, "vatAmount")
	moneyEqual(t, "1180", o.TotalBeforeDiscount, "totalBeforeDiscount")
	moneyEqual(t, "1180", o.FinalTotal, "finalTotal")
}

func TestCalculateTotals_AfterPartialReturn(t *testing.T) {
	o := testOrder(t, "118", 18, 10)

	o.Items[0].applyReturn(3, time.Now())
	o.RecalculateTotals()

	assert.Equal(t, 3, o.Items[0].ReturnedQuantity)
	moneyEqual(t, "700", o.Subtotal, "subtotal")
	moneyEqual(t, "126", o.VATAmount, "vatAmount")
	moneyEqual(t, "826", o.TotalBeforeDiscount, "totalBeforeDiscount")
	moneyEqual(t, "1180", o.FinalTotal, "finalTotal unchanged by return")
}

func TestCalculateTotals_Discount(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	o.DiscountAmount = types.MustMoney("118") // 10% of 1180
	o.RecalculateTotals()

	moneyEqual(t, "1062", o.FinalTotal, "finalTotal with discount")
	moneyEqual(t, "0.1", o.DiscountRatio(), "discount ratio")
}

func TestCalculateTotals_DiscountClamped(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	o.DiscountAmount = types.MustMoney("99999")
	o.RecalculateTotals()

	moneyEqual(t, "1180", o.DiscountAmount, "discount clamped to original total")
	moneyEqual(t, "0", o.FinalTotal, "finalTotal floors at zero")
	assert.False(t, o.FinalTotal.IsNegative())
}

func TestCalculateTotals_NegativeDiscountTreatedAsZero(t *testing.T) {
	totals := CalculateTotals(
		testOrder(t, "118", 18, 10).Items,
		types.MustMoney("-50"),
		nil,
	)

	moneyEqual(t, "0", totals.DiscountAmount, "negative discount")
	moneyEqual(t, "1180", totals.FinalTotal, "finalTotal")
}

func TestCalculateTotals_Extras(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	o.AddExtra("Delivery", types.MustMoney("50"))
	o.AddExtra("Installation", types.MustMoney("120.50"))
	o.RecalculateTotals()

	moneyEqual(t, "170.50", o.ExtrasTotal, "extrasTotal")
	moneyEqual(t, "1350.50", o.FinalTotal, "finalTotal with extras")
}

func TestCalculateTotals_EmptyItems(t *testing.T) {
	totals := CalculateTotals(nil, types.Zero(), nil)

	moneyEqual(t, "0", totals.Subtotal, "subtotal")
	moneyEqual(t, "0", totals.VATAmount, "vatAmount")
	moneyEqual(t, "0", totals.FinalTotal, "finalTotal")
}

func TestCalculateTotals_FullyReturnedLine(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	o.Items[0].applyReturn(10, time.Now())
	o.RecalculateTotals()

	moneyEqual(t, "0", o.Subtotal, "subtotal")
	moneyEqual(t, "0", o.VATAmount, "vatAmount")
	moneyEqual(t, "1180", o.FinalTotal, "finalTotal survives full return")
	assert.True(t, o.Items[0].Returned)
}

func TestCalculateTotals_Pure(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	o.AddExtra("Delivery", types.MustMoney("50"))

	first := CalculateTotals(o.Items, o.DiscountAmount, o.Extras)
	second := CalculateTotals(o.Items, o.DiscountAmount, o.Extras)

	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.VATAmount.Equal(second.VATAmount))
	assert.True(t, first.FinalTotal.Equal(second.FinalTotal))
	assert.True(t, first.ExtrasTotal.Equal(second.ExtrasTotal))
}

func TestCalculateTotals_NeverNegative(t *testing.T) {
	cases := []struct {
		name     string
		price    string
		vat      int64
		qty      int
		discount string
	}{
		{"no discount", "118", 18, 10, "0"},
		{"partial discount", "118", 18, 10, "590"},
		{"full discount", "118", 18, 10, "1180"},
		{"excess discount", "59.99", 18, 3, "10000"},
		{"zero VAT", "250", 0, 1, "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := testOrder(t, tc.price, tc.vat, tc.qty)
			o.DiscountAmount = types.MustMoney(tc.discount)
			o.RecalculateTotals()

			require.False(t, o.Subtotal.IsNegative())
			require.False(t, o.VATAmount.IsNegative())
			require.False(t, o.FinalTotal.IsNegative())
		})
	}
}

func TestCalculateTotals_RoundingPersistedFigures(t *testing.T) {
	// 33.33 at 18% gives a repeating base; persisted figures come back
	// at two decimal places while per-unit values stay unrounded.
	o := testOrder(t, "33.33", 18, 7)

	assert.True(t, o.Subtotal.Exponent() >= -2, "subtotal rounded: %s", o.Subtotal)
	assert.True(t, o.FinalTotal.Exponent() >= -2, "finalTotal rounded: %s", o.FinalTotal)

	reconstructed := o.Items[0].BasePerUnit.Add(o.Items[0].VATPerUnit)
	moneyEqual(t, "33.33", reconstructed, "per-unit split sums back to unit price")
}
