package refunds

import (
	"context"
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
	"machshop/pkg/numerator"
)

type mockTxManager struct{}

func (m *mockTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockRefundRepo struct {
	byID       map[id.ID]*Refund
	events     map[id.ID][]ReturnEvent
	creates    int
	lastFilter ListFilter
}

func newMockRefundRepo() *mockRefundRepo {
	return &mockRefundRepo{
		byID:   make(map[id.ID]*Refund),
		events: make(map[id.ID][]ReturnEvent),
	}
}

func (m *mockRefundRepo) Create(ctx context.Context, r *Refund) error {
	m.creates++
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *mockRefundRepo) GetByID(ctx context.Context, refundID id.ID) (*Refund, error) {
	r, ok := m.byID[refundID]
	if !ok {
		return nil, apperror.NewNotFound("refund", refundID.String())
	}
	cp := *r
	return &cp, nil
}

func (m *mockRefundRepo) GetByOrder(ctx context.Context, orderID id.ID) (*Refund, error) {
	for _, r := range m.byID {
		if r.OrderID == orderID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("refund", orderID.String())
}

func (m *mockRefundRepo) Update(ctx context.Context, r *Refund) error {
	stored, ok := m.byID[r.ID]
	if !ok {
		return apperror.NewNotFound("refund", r.ID.String())
	}
	if r.Version != stored.Version {
		return apperror.NewConcurrentModification("refund", r.ID)
	}
	cp := *r
	cp.Version = r.Version + 1
	m.byID[r.ID] = &cp
	r.SetVersion(cp.Version)
	return nil
}

func (m *mockRefundRepo) GetEvents(ctx context.Context, refundID id.ID) ([]ReturnEvent, error) {
	out := make([]ReturnEvent, len(m.events[refundID]))
	copy(out, m.events[refundID])
	return out, nil
}

func (m *mockRefundRepo) SaveEvents(ctx context.Context, refundID id.ID, events []ReturnEvent) error {
	cp := make([]ReturnEvent, len(events))
	copy(cp, events)
	m.events[refundID] = cp
	return nil
}

func (m *mockRefundRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Refund], error) {
	m.lastFilter = filter
	result := domain.ListResult[*Refund]{}
	for _, r := range m.byID {
		cp := *r
		result.Items = append(result.Items, &cp)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (m *mockRefundRepo) GetStats(ctx context.Context, from, to time.Time) (Stats, error) {
	return Stats{}, nil
}

func testOrderRef() OrderRef {
	return OrderRef{
		OrderID:     id.New(),
		OrderNumber: "ORD-20260301-00042",
		CustomerID:  id.New(),
		Customer:    customer.Info{Name: "Test Customer"},
		FinalTotal:  types.MustMoney("1180"),
	}
}

func returnEvent(amount string, qty int) ReturnEvent {
	return ReturnEvent{
		EventID:    id.New(),
		Kind:       KindReturn,
		MachineID:  id.New(),
		ItemName:   "Vertical Form Fill Seal Machine",
		Quantity:   qty,
		Amount:     types.MustMoney(amount),
		OccurredAt: time.Now().UTC(),
	}
}

func newTestService() (*Service, *mockRefundRepo) {
	repo := newMockRefundRepo()
	svc := NewService(repo, &mockTxManager{}, &numerator.MockGenerator{})
	return svc, repo
}

func TestRecordReturn_CreatesOnFirstReturn(t *testing.T) {
	svc, repo := newTestService()
	ref := testOrderRef()

	r, err := svc.RecordReturn(context.Background(), ref, returnEvent("354", 3))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(r.Number, "RFD-"))
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, ref.OrderID, r.OrderID)
	assert.Equal(t, "Test Customer", r.Info.Name)
	assert.True(t, r.OriginalAmount.Equal(types.MustMoney("1180")))
	assert.True(t, r.RefundAmount.Equal(types.MustMoney("354")))
	assert.Equal(t, 1, repo.creates)
}

func TestRecordReturn_AccumulatesOnOneRecord(t *testing.T) {
	svc, repo := newTestService()
	ref := testOrderRef()

	first, err := svc.RecordReturn(context.Background(), ref, returnEvent("354", 3))
	require.NoError(t, err)
	second, err := svc.RecordReturn(context.Background(), ref, returnEvent("826", 7))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "one refund per order")
	assert.Equal(t, 1, repo.creates)
	assert.True(t, second.RefundAmount.Equal(types.MustMoney("1180")))
	assert.Len(t, repo.events[first.ID], 2)
	assert.Equal(t, TypeFull, second.Type())
}

func TestRecordReturn_RoundingNeverBlocksFinalReturn(t *testing.T) {
	svc, _ := newTestService()
	ref := testOrderRef()
	// 3 units at 100 with a 10 discount: each unit refunds
	// round(100 * 29/30) = 96.67, summing a cent past the 290 charged.
	ref.FinalTotal = types.MustMoney("290")

	var r *Refund
	var err error
	for i := 0; i < 3; i++ {
		r, err = svc.RecordReturn(context.Background(), ref, returnEvent("96.67", 1))
		require.NoError(t, err, "return %d", i+1)
	}

	assert.True(t, r.RefundAmount.Equal(types.MustMoney("290")),
		"refund capped at charged total, got %s", r.RefundAmount)
	assert.Equal(t, TypeFull, r.Type())
}

func TestRecordReturn_IdempotentByEventID(t *testing.T) {
	svc, repo := newTestService()
	ref := testOrderRef()
	ev := returnEvent("354", 3)

	_, err := svc.RecordReturn(context.Background(), ref, ev)
	require.NoError(t, err)
	replayed, err := svc.RecordReturn(context.Background(), ref, ev)
	require.NoError(t, err)

	assert.True(t, replayed.RefundAmount.Equal(types.MustMoney("354")), "replay does not double-count")
	assert.Len(t, repo.events[replayed.ID], 1)
}

func TestRecordReturn_StaysPending(t *testing.T) {
	svc, _ := newTestService()
	ref := testOrderRef()

	r, err := svc.RecordReturn(context.Background(), ref, returnEvent("354", 3))
	require.NoError(t, err)
	r, err = svc.RecordReturn(context.Background(), ref, returnEvent("826", 7))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, r.Status, "recording never escalates the status")
}

func TestRecordReturn_OverpaymentSharesRecord(t *testing.T) {
	svc, repo := newTestService()
	ref := testOrderRef()

	_, err := svc.RecordReturn(context.Background(), ref, returnEvent("354", 3))
	require.NoError(t, err)

	over := ReturnEvent{
		EventID:    id.New(),
		Kind:       KindOverpayment,
		Amount:     types.MustMoney("120"),
		OccurredAt: time.Now().UTC(),
	}
	r, err := svc.RecordReturn(context.Background(), ref, over)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.creates)
	assert.True(t, r.RefundAmount.Equal(types.MustMoney("474")))
}

func TestRecordReturn_MissingEventID(t *testing.T) {
	svc, _ := newTestService()

	ev := returnEvent("354", 3)
	ev.EventID = id.Nil()

	_, err := svc.RecordReturn(context.Background(), testOrderRef(), ev)
	assert.Error(t, err)
}

func TestUpdateStatus_Workflow(t *testing.T) {
	svc, _ := newTestService()
	ref := testOrderRef()
	r, err := svc.RecordReturn(context.Background(), ref, returnEvent("354", 3))
	require.NoError(t, err)

	approved, err := svc.UpdateStatus(context.Background(), r.ID, StatusApproved, "manager")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "manager", approved.ProcessedBy)

	completed, err := svc.UpdateStatus(context.Background(), r.ID, StatusCompleted, "manager")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	_, err = svc.UpdateStatus(context.Background(), r.ID, StatusPending, "manager")
	assert.Error(t, err, "completed is terminal")
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	svc, _ := newTestService()
	r, err := svc.RecordReturn(context.Background(), testOrderRef(), returnEvent("354", 3))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), r.ID, StatusCompleted, "manager")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_STATUS_TRANSITION", appErr.Code)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.UpdateStatus(context.Background(), id.New(), StatusApproved, "manager")
	assert.True(t, apperror.IsNotFound(err))
}

func TestList_DefaultsLimitOnly(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.List(context.Background(), ListFilter{
		ListFilter: domain.ListFilter{Search: "RFD", IncludeDeleted: true},
	})
	require.NoError(t, err)

	assert.Equal(t, 50, repo.lastFilter.Limit)
	assert.Equal(t, "RFD", repo.lastFilter.Search, "search kept alongside defaulted limit")
	assert.True(t, repo.lastFilter.IncludeDeleted)
}
