package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machshop/internal/core/apperror"
	"machshop/internal/core/id"
	"machshop/internal/core/types"
	"machshop/internal/domain/catalogs/customer"
)

func TestApplyPayment_Partial(t *testing.T) {
	o := testOrder(t, "118", 18, 10) // finalTotal 1180
	o.ReconcilePayments()

	err := o.ApplyPayment(types.MustMoney("600"), "alice", time.Now())
	require.NoError(t, err)

	moneyEqual(t, "600", o.PaidAmount, "paidAmount")
	moneyEqual(t, "580", o.RemainingAmount, "remainingAmount")
	assert.Equal(t, PaymentPartial, o.PaymentStatus)
	assert.Equal(t, StatusProcessing, o.Status)
	require.Len(t, o.Payments, 1)
	assert.Equal(t, "alice", o.Payments[0].UpdatedBy)
}

func TestApplyPayment_ExceedsRemaining(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	o.ReconcilePayments()
	require.NoError(t, o.ApplyPayment(types.MustMoney("600"), "alice", time.Now()))

	err := o.ApplyPayment(types.MustMoney("700"), "alice", time.Now())

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodePaymentExceeds, appErr.Code)

	// no state change on rejection
	moneyEqual(t, "600", o.PaidAmount, "paidAmount")
	moneyEqual(t, "580", o.RemainingAmount, "remainingAmount")
	assert.Len(t, o.Payments, 1)
}

func TestApplyPayment_NonPositive(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	o.ReconcilePayments()

	for _, amount := range []string{"0", "-25"} {
		err := o.ApplyPayment(types.MustMoney(amount), "alice", time.Now())
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr, "amount %s", amount)
		assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)
	}
	assert.Empty(t, o.Payments)
}

func TestApplyPayment_Conservation(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	o.ReconcilePayments()

	for _, amount := range []string{"100", "80", "420.50", "579.50"} {
		require.NoError(t, o.ApplyPayment(types.MustMoney(amount), "alice", time.Now()))
		sum := o.PaidAmount.Add(o.RemainingAmount)
		moneyEqual(t, "1180", sum, "paid + remaining")
		assert.False(t, o.PaidAmount.GreaterThan(o.FinalTotal))
	}

	assert.Equal(t, PaymentFull, o.PaymentStatus)
	assert.Equal(t, StatusCompleted, o.Status)
}

func TestApplyPayment_ClearsDueDateWhenSettled(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	due := time.Now().AddDate(0, 0, DefaultPaymentPeriodDays)
	o.DueDate = &due
	o.ReconcilePayments()
	require.NotNil(t, o.DueDate)

	require.NoError(t, o.ApplyPayment(types.MustMoney("1180"), "alice", time.Now()))

	assert.Nil(t, o.DueDate)
	assert.Equal(t, PaymentFull, o.PaymentStatus)
}

func TestEffectiveStatus_CorrectsDrift(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	o.ReconcilePayments()

	// stored Completed but money still owed
	o.Status = StatusCompleted
	assert.Equal(t, StatusProcessing, o.EffectiveStatus())

	// stored Processing but fully paid
	o.PaidAmount = o.FinalTotal
	o.RemainingAmount = types.Zero()
	o.Status = StatusProcessing
	assert.Equal(t, StatusCompleted, o.EffectiveStatus())
}

func TestEffectiveStatus_TerminalStatesAuthoritative(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	o.ReconcilePayments()

	o.Status = StatusCancelled
	assert.Equal(t, StatusCancelled, o.EffectiveStatus())

	o.Status = StatusReturned
	assert.Equal(t, StatusReturned, o.EffectiveStatus())
}

func TestLineItem_StateMachine(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	li := &o.Items[0]
	assert.Equal(t, LineActive, li.State())

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	li.applyReturn(3, first)
	assert.Equal(t, LinePartiallyReturned, li.State())
	assert.Equal(t, 3, li.ReturnedQuantity)
	assert.False(t, li.Returned)
	require.NotNil(t, li.ReturnedAt)
	assert.Equal(t, first, *li.ReturnedAt)

	later := first.AddDate(0, 0, 5)
	li.applyReturn(7, later)
	assert.Equal(t, LineFullyReturned, li.State())
	assert.Equal(t, 10, li.ReturnedQuantity)
	assert.True(t, li.Returned)
	assert.Equal(t, first, *li.ReturnedAt, "returnedAt set once, never moved")

	assert.Equal(t, 0, li.AvailableToReturn())
}

func TestOrder_Overpayment(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	o.ReconcilePayments()
	moneyEqual(t, "0", o.Overpayment(), "no overpayment")

	o.PaidAmount = types.MustMoney("1300")
	moneyEqual(t, "120", o.Overpayment(), "overpayment")
}

func TestOrder_FullyReturned(t *testing.T) {
	o := NewOrder(id.New(), customer.Info{Name: "Test Customer"})
	assert.False(t, o.FullyReturned(), "empty order is not fully returned")

	o.AddLine(testSnapshot("118", 18), 2)
	o.AddLine(testSnapshot("59", 18), 1)
	assert.False(t, o.FullyReturned())

	o.Items[0].applyReturn(2, time.Now())
	assert.False(t, o.FullyReturned())

	o.Items[1].applyReturn(1, time.Now())
	assert.True(t, o.FullyReturned())
}

func TestOrder_Validate(t *testing.T) {
	ctx := context.Background()

	o := NewOrder(id.Nil(), customer.Info{})
	assert.Error(t, o.Validate(ctx), "customer required")

	o = NewOrder(id.New(), customer.Info{Name: "Test Customer"})
	assert.Error(t, o.Validate(ctx), "items required")

	o.AddLine(testSnapshot("118", 18), 5)
	assert.NoError(t, o.Validate(ctx))

	o.Items[0].Quantity = 0
	assert.Error(t, o.Validate(ctx), "zero quantity")
}

func TestOrder_SnapshotRestore(t *testing.T) {
	o := testOrder(t, "118", 18, 10)
	o.ReconcilePayments()
	require.NoError(t, o.ApplyPayment(types.MustMoney("500"), "alice", time.Now()))

	snap := o.TakeSnapshot()

	o.Items[0].applyReturn(4, time.Now())
	o.RecalculateTotals()
	o.ReconcilePayments()
	require.NoError(t, o.ApplyPayment(types.MustMoney("100"), "bob", time.Now()))
	moneyEqual(t, "600", o.Subtotal, "mutated subtotal")

	o.Restore(snap)

	assert.Equal(t, 0, o.Items[0].ReturnedQuantity)
	moneyEqual(t, "1000", o.Subtotal, "restored subtotal")
	moneyEqual(t, "500", o.PaidAmount, "restored paidAmount")
	assert.Len(t, o.Payments, 1)
}
