package orders

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machshop/internal/core/apperror"
	"machshop/internal/core/id"
	"machshop/internal/core/types"
	"machshop/internal/domain"
	"machshop/internal/domain/catalogs/customer"
	"machshop/internal/domain/catalogs/machine"
	"machshop/internal/domain/refunds"
	"machshop/pkg/numerator"
)

// --- mocks ---

type mockTxManager struct{}

func (m *mockTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// mockOrderRepo keeps a single order in memory and mirrors the optimistic
// locking the real repository applies: Update matches on the loaded version,
// advances it, and syncs it back onto the entity.
type mockOrderRepo struct {
	stored   *Order
	items    []LineItem
	extras   []ExtraCharge
	payments []PaymentEntry

	updateCalls  int
	updateErr    error
	saveItemsErr error
	lastFilter   ListFilter
}

func (m *mockOrderRepo) Create(ctx context.Context, o *Order) error {
	cp := *o
	m.stored = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	if m.stored == nil || m.stored.ID != orderID {
		return nil, apperror.NewNotFound("order", orderID.String())
	}
	cp := *m.stored
	return &cp, nil
}

func (m *mockOrderRepo) GetByNumber(ctx context.Context, number string) (*Order, error) {
	if m.stored == nil || m.stored.Number != number {
		return nil, apperror.NewNotFound("order", number)
	}
	cp := *m.stored
	return &cp, nil
}

func (m *mockOrderRepo) Update(ctx context.Context, o *Order) error {
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.stored == nil || m.stored.ID != o.ID {
		return apperror.NewNotFound("order", o.ID.String())
	}
	if o.Version != m.stored.Version {
		return apperror.NewConcurrentModification("order", o.ID)
	}
	cp := *o
	cp.Version = o.Version + 1
	m.stored = &cp
	o.SetVersion(cp.Version)
	return nil
}

func (m *mockOrderRepo) Delete(ctx context.Context, orderID id.ID) error {
	m.stored = nil
	return nil
}

func (m *mockOrderRepo) GetItems(ctx context.Context, orderID id.ID) ([]LineItem, error) {
	out := make([]LineItem, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *mockOrderRepo) SaveItems(ctx context.Context, orderID id.ID, items []LineItem) error {
	if m.saveItemsErr != nil {
		return m.saveItemsErr
	}
	m.items = make([]LineItem, len(items))
	copy(m.items, items)
	return nil
}

func (m *mockOrderRepo) GetExtras(ctx context.Context, orderID id.ID) ([]ExtraCharge, error) {
	out := make([]ExtraCharge, len(m.extras))
	copy(out, m.extras)
	return out, nil
}

func (m *mockOrderRepo) SaveExtras(ctx context.Context, orderID id.ID, extras []ExtraCharge) error {
	m.extras = make([]ExtraCharge, len(extras))
	copy(m.extras, extras)
	return nil
}

func (m *mockOrderRepo) GetPayments(ctx context.Context, orderID id.ID) ([]PaymentEntry, error) {
	out := make([]PaymentEntry, len(m.payments))
	copy(out, m.payments)
	return out, nil
}

func (m *mockOrderRepo) AppendPayment(ctx context.Context, orderID id.ID, entry PaymentEntry) error {
	m.payments = append(m.payments, entry)
	return nil
}

func (m *mockOrderRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error) {
	m.lastFilter = filter
	if m.stored == nil {
		return domain.ListResult[*Order]{}, nil
	}
	cp := *m.stored
	return domain.ListResult[*Order]{Items: []*Order{&cp}, TotalCount: 1}, nil
}

func (m *mockOrderRepo) GetStats(ctx context.Context, from, to time.Time) (Stats, error) {
	return Stats{}, nil
}

type mockInventory struct {
	machines  map[id.ID]*machine.Machine
	adjusts   []int
	adjustErr error
}

func (m *mockInventory) GetByID(ctx context.Context, machineID id.ID) (*machine.Machine, error) {
	mc, ok := m.machines[machineID]
	if !ok {
		return nil, apperror.NewNotFound("machine", machineID.String())
	}
	return mc, nil
}

func (m *mockInventory) AdjustStock(ctx context.Context, machineID id.ID, delta int) (int, error) {
	if m.adjustErr != nil {
		return 0, m.adjustErr
	}
	mc, ok := m.machines[machineID]
	if !ok {
		return 0, apperror.NewNotFound("machine", machineID.String())
	}
	if delta < 0 && mc.Quantity+delta < 0 {
		return 0, apperror.NewInsufficientStock(machineID.String(), -delta, mc.Quantity)
	}
	mc.Quantity += delta
	m.adjusts = append(m.adjusts, delta)
	return mc.Quantity, nil
}

type mockCustomers struct {
	customerID id.ID
	info       customer.Info
}

func (m *mockCustomers) Snapshot(ctx context.Context, customerID id.ID) (customer.Info, error) {
	if customerID != m.customerID {
		return customer.Info{}, apperror.NewNotFound("customer", customerID.String())
	}
	return m.info, nil
}

type mockRefunds struct {
	refund    *refunds.Refund
	events    []refunds.ReturnEvent
	recordErr error
}

func (m *mockRefunds) RecordReturn(ctx context.Context, ref refunds.OrderRef, ev refunds.ReturnEvent) (*refunds.Refund, error) {
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	if m.refund == nil {
		m.refund = refunds.NewRefund(ref)
	}
	m.refund.AppendEvent(ev)
	m.events = append(m.events, ev)
	return m.refund, nil
}

// --- fixture ---

type fixture struct {
	svc  *Service
	repo *mockOrderRepo
	inv  *mockInventory
	ref  *mockRefunds

	customerID id.ID
	machineID  id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	m := machine.NewMachine("MCH-00001", "Vertical Form Fill Seal Machine", machine.CategoryPacking)
	m.Price = types.MustMoney("118")
	m.VATPercentage = types.NewMoneyFromInt(18)
	m.Quantity = 50

	f := &fixture{
		repo:       &mockOrderRepo{},
		ref:        &mockRefunds{},
		customerID: id.New(),
		machineID:  m.ID,
	}
	f.inv = &mockInventory{machines: map[id.ID]*machine.Machine{m.ID: m}}

	customers := &mockCustomers{
		customerID: f.customerID,
		info:       customer.Info{Name: "Test Customer", Phone: "0771234567"},
	}

	f.svc = NewService(f.repo, &mockTxManager{}, &numerator.MockGenerator{}, f.inv, customers, f.ref)
	return f
}

func (f *fixture) createOrder(t *testing.T, qty int, discount string) *Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID:     f.customerID,
		Items:          []CreateItemInput{{MachineID: f.machineID, Quantity: qty}},
		DiscountAmount: types.MustMoney(discount),
		ProcessedBy:    "alice",
	})
	require.NoError(t, err)
	f.inv.adjusts = f.inv.adjusts[:0]
	return o
}

// --- tests ---

func TestService_Create(t *testing.T) {
	f := newFixture(t)

	o, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID:  f.customerID,
		Items:       []CreateItemInput{{MachineID: f.machineID, Quantity: 10}},
		ProcessedBy: "alice",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(o.Number, "ORD-"))
	moneyEqual(t, "1180", o.FinalTotal, "finalTotal")
	assert.Equal(t, "Test Customer", o.Info.Name)
	assert.Equal(t, 40, f.inv.machines[f.machineID].Quantity, "stock decremented")
	require.NotNil(t, f.repo.stored)
	require.NotNil(t, o.DueDate)
	assert.Equal(t, o.Date.AddDate(0, 0, DefaultPaymentPeriodDays), *o.DueDate)
}

func TestService_Create_InsufficientStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: f.customerID,
		Items:      []CreateItemInput{{MachineID: f.machineID, Quantity: 100}},
	})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
}

func TestService_Create_UnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: id.New(),
		Items:      []CreateItemInput{{MachineID: f.machineID, Quantity: 1}},
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_ReturnItem(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "0")

	result, err := f.svc.ReturnItem(context.Background(), o.ID, f.machineID, 3)
	require.NoError(t, err)

	moneyEqual(t, "354", result.ReturnAmount, "returnAmount")
	moneyEqual(t, "300", result.RefundBaseAmount, "refundBaseAmount")
	moneyEqual(t, "54", result.RefundVATAmount, "refundVatAmount")
	assert.Equal(t, 43, result.UpdatedStock)
	assert.Equal(t, refunds.StatusPending, result.RefundStatus)

	stored := f.repo.stored
	require.NotNil(t, stored)
	moneyEqual(t, "700", stored.Subtotal, "stored subtotal")
	moneyEqual(t, "1180", stored.FinalTotal, "stored finalTotal unchanged")
	require.Len(t, f.repo.items, 1)
	assert.Equal(t, 3, f.repo.items[0].ReturnedQuantity)

	require.NotNil(t, f.ref.refund)
	moneyEqual(t, "354", f.ref.refund.RefundAmount, "refund amount")
}

func TestService_ReturnItem_DiscountApplied(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "118") // 10% of 1180

	result, err := f.svc.ReturnItem(context.Background(), o.ID, f.machineID, 3)
	require.NoError(t, err)

	moneyEqual(t, "318.60", result.ReturnAmount, "discount-adjusted returnAmount")
	moneyEqual(t, "270", result.RefundBaseAmount, "discount-adjusted base")
	moneyEqual(t, "48.60", result.RefundVATAmount, "discount-adjusted VAT")
}

func TestService_ReturnItem_AccumulatesOnOneRefund(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "0")

	_, err := f.svc.ReturnItem(context.Background(), o.ID, f.machineID, 3)
	require.NoError(t, err)
	_, err = f.svc.ReturnItem(context.Background(), o.ID, f.machineID, 7)
	require.NoError(t, err)

	require.NotNil(t, f.ref.refund)
	moneyEqual(t, "1180", f.ref.refund.RefundAmount, "accumulated refund")
	assert.Len(t, f.ref.events, 2)

	assert.Equal(t, 10, f.repo.items[0].ReturnedQuantity)
	assert.True(t, f.repo.items[0].Returned)
	assert.Equal(t, StatusReturned, f.repo.stored.Status)
	moneyEqual(t, "1180", f.repo.stored.FinalTotal, "finalTotal after full return")
}

func TestService_ReturnItem_InvalidQuantity(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "0")
	_, err := f.svc.ReturnItem(context.Background(), o.ID, f.machineID, 8)
	require.NoError(t, err)

	_, err = f.svc.ReturnItem(context.Background(), o.ID, f.machineID, 5)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidQuantity, appErr.Code)
	assert.Equal(t, "Cannot return 5 units. Only 2 units available to return.", appErr.Message)

	assert.Equal(t, 8, f.repo.items[0].ReturnedQuantity, "no state change on rejection")
}

func TestService_ReturnItem_ZeroQuantity(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "0")

	_, err := f.svc.ReturnItem(context.Background(), o.ID, f.machineID, 0)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidQuantity, appErr.Code)
}

func TestService_ReturnItem_ItemNotFound(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "0")

	_, err := f.svc.ReturnItem(context.Background(), o.ID, id.New(), 1)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_ReturnItem_OrderNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ReturnItem(context.Background(), id.New(), f.machineID, 1)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_ReturnItem_CompensatesOnStockFailure(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "0")
	f.inv.adjustErr = errors.New("inventory unavailable")

	_, err := f.svc.ReturnItem(context.Background(), o.ID, f.machineID, 3)
	require.Error(t, err)

	// order mutation was persisted first, then rolled back
	assert.Equal(t, 2, f.repo.updateCalls)
	assert.Equal(t, 0, f.repo.items[0].ReturnedQuantity, "returned quantity restored")
	moneyEqual(t, "1000", f.repo.stored.Subtotal, "subtotal restored")
	assert.Nil(t, f.ref.refund, "no refund recorded")
}

func TestService_ReturnItem_CompensatesOnRefundFailure(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "0")
	f.ref.recordErr = errors.New("refund store unavailable")

	_, err := f.svc.ReturnItem(context.Background(), o.ID, f.machineID, 3)
	require.Error(t, err)

	assert.Equal(t, []int{3, -3}, f.inv.adjusts, "stock increment reversed")
	assert.Equal(t, 40, f.inv.machines[f.machineID].Quantity, "stock level back where it was")
	assert.Equal(t, 0, f.repo.items[0].ReturnedQuantity, "returned quantity restored")
	moneyEqual(t, "1180", f.repo.stored.FinalTotal, "finalTotal intact")
}

func TestService_ReturnItem_Monotonic(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "0")

	previous := 0
	for _, qty := range []int{2, 3, 1} {
		_, err := f.svc.ReturnItem(context.Background(), o.ID, f.machineID, qty)
		require.NoError(t, err)

		current := f.repo.items[0].ReturnedQuantity
		assert.Greater(t, current, previous)
		assert.LessOrEqual(t, current, f.repo.items[0].Quantity)
		previous = current
	}
}

func TestService_ApplyPayment(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "0")

	updated, err := f.svc.ApplyPayment(context.Background(), o.ID, types.MustMoney("600"), "alice")
	require.NoError(t, err)

	moneyEqual(t, "600", updated.PaidAmount, "paidAmount")
	moneyEqual(t, "580", updated.RemainingAmount, "remainingAmount")
	assert.Equal(t, PaymentPartial, updated.PaymentStatus)
	require.Len(t, f.repo.payments, 1)
	moneyEqual(t, "600", f.repo.payments[0].Amount, "persisted entry")
}

func TestService_ApplyPayment_Rejected(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "0")
	_, err := f.svc.ApplyPayment(context.Background(), o.ID, types.MustMoney("600"), "alice")
	require.NoError(t, err)

	_, err = f.svc.ApplyPayment(context.Background(), o.ID, types.MustMoney("700"), "alice")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodePaymentExceeds, appErr.Code)
	assert.Len(t, f.repo.payments, 1, "no entry persisted")
	moneyEqual(t, "600", f.repo.stored.PaidAmount, "stored paidAmount unchanged")
}

func TestService_Cancel_RestocksActiveUnits(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "0")
	_, err := f.svc.ReturnItem(context.Background(), o.ID, f.machineID, 3)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), o.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, 50, f.inv.machines[f.machineID].Quantity, "active units restocked")

	_, err = f.svc.Cancel(context.Background(), o.ID)
	assert.Error(t, err, "double cancel rejected")
}

func TestService_GetByID_CorrectsStatus(t *testing.T) {
	f := newFixture(t)
	o := f.createOrder(t, 10, "0")

	// stored status drifts out of sync with the ledger
	f.repo.stored.Status = StatusCompleted

	got, err := f.svc.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status, "unpaid order reads as Processing")
}

func TestService_List_DefaultsLimitOnly(t *testing.T) {
	f := newFixture(t)
	f.createOrder(t, 10, "0")

	_, err := f.svc.List(context.Background(), ListFilter{
		ListFilter: domain.ListFilter{Search: "ORD", IncludeDeleted: true},
	})
	require.NoError(t, err)

	assert.Equal(t, 50, f.repo.lastFilter.Limit)
	assert.Equal(t, "ORD", f.repo.lastFilter.Search, "search kept alongside defaulted limit")
	assert.True(t, f.repo.lastFilter.IncludeDeleted)
}
