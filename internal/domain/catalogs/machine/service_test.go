package machine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machshop/internal/core/apperror"
	"machshop/internal/core/id"
	"machshop/internal/domain"
	"machshop/pkg/numerator"
)

// --- mocks ---

type mockTxManager struct{}

func (m *mockTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockMachineRepo struct {
	byID map[id.ID]*Machine
}

func newMockMachineRepo() *mockMachineRepo {
	return &mockMachineRepo{byID: make(map[id.ID]*Machine)}
}

func (m *mockMachineRepo) Create(ctx context.Context, e *Machine) error {
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *mockMachineRepo) GetByID(ctx context.Context, entityID id.ID) (*Machine, error) {
	e, ok := m.byID[entityID]
	if !ok {
		return nil, apperror.NewNotFound("machine", entityID.String())
	}
	cp := *e
	return &cp, nil
}

func (m *mockMachineRepo) GetByCode(ctx context.Context, code string) (*Machine, error) {
	for _, e := range m.byID {
		if e.Code == code {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("machine", code)
}

func (m *mockMachineRepo) Update(ctx context.Context, e *Machine) error {
	if _, ok := m.byID[e.ID]; !ok {
		return apperror.NewNotFound("machine", e.ID.String())
	}
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *mockMachineRepo) Delete(ctx context.Context, entityID id.ID) error {
	delete(m.byID, entityID)
	return nil
}

func (m *mockMachineRepo) SetDeletionMark(ctx context.Context, entityID id.ID, marked bool) error {
	e, ok := m.byID[entityID]
	if !ok {
		return apperror.NewNotFound("machine", entityID.String())
	}
	e.DeletionMark = marked
	return nil
}

func (m *mockMachineRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Machine], error) {
	var out []*Machine
	for _, e := range m.byID {
		cp := *e
		out = append(out, &cp)
	}
	return domain.ListResult[*Machine]{Items: out, TotalCount: int64(len(out))}, nil
}

func (m *mockMachineRepo) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	_, ok := m.byID[entityID]
	return ok, nil
}

func (m *mockMachineRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	for _, e := range m.byID {
		if e.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockMachineRepo) GetForUpdate(ctx context.Context, entityID id.ID) (*Machine, error) {
	return m.GetByID(ctx, entityID)
}

func (m *mockMachineRepo) AdjustQuantity(ctx context.Context, entityID id.ID, delta int) (int, error) {
	e, ok := m.byID[entityID]
	if !ok {
		return 0, apperror.NewNotFound("machine", entityID.String())
	}
	if e.Quantity+delta < 0 {
		return 0, apperror.NewInsufficientStock(entityID.String(), -delta, e.Quantity)
	}
	e.Quantity += delta
	return e.Quantity, nil
}

func (m *mockMachineRepo) FindByCategory(ctx context.Context, category Category, filter domain.ListFilter) (domain.ListResult[*Machine], error) {
	var out []*Machine
	for _, e := range m.byID {
		if e.Category == category {
			cp := *e
			out = append(out, &cp)
		}
	}
	return domain.ListResult[*Machine]{Items: out, TotalCount: int64(len(out))}, nil
}

func (m *mockMachineRepo) FindLowStock(ctx context.Context, threshold int, filter domain.ListFilter) (domain.ListResult[*Machine], error) {
	var out []*Machine
	for _, e := range m.byID {
		if e.Quantity <= threshold {
			cp := *e
			out = append(out, &cp)
		}
	}
	return domain.ListResult[*Machine]{Items: out, TotalCount: int64(len(out))}, nil
}

// --- helpers ---

func newTestService(repo Repository) *Service {
	return NewService(repo, &mockTxManager{}, &numerator.MockGenerator{})
}

func seedMachine(t *testing.T, repo *mockMachineRepo, quantity int) *Machine {
	t.Helper()
	m := NewMachine("MCH00001", "Band Sealer CBS-900", CategorySealing)
	m.Quantity = quantity
	repo.byID[m.ID] = m
	return m
}

// --- tests ---

func TestService_Create_GeneratesCode(t *testing.T) {
	repo := newMockMachineRepo()
	svc := newTestService(repo)

	m := NewMachine("", "Liquid Filler LF-8", CategoryFilling)
	require.NoError(t, svc.Create(context.Background(), m))

	assert.NotEmpty(t, m.Code)
	assert.Contains(t, m.Code, "MCH")
}

func TestService_Create_RejectsDuplicateCode(t *testing.T) {
	repo := newMockMachineRepo()
	svc := newTestService(repo)
	seedMachine(t, repo, 1)

	m := NewMachine("MCH00001", "Another Sealer", CategorySealing)
	err := svc.Create(context.Background(), m)

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestService_Create_RejectsInvalidCategory(t *testing.T) {
	repo := newMockMachineRepo()
	svc := newTestService(repo)

	m := NewMachine("", "Mystery Device", Category("Teleporter"))
	err := svc.Create(context.Background(), m)

	require.Error(t, err)
	assert.True(t, apperror.IsAppError(err))
}

func TestService_AdjustStock_Increments(t *testing.T) {
	repo := newMockMachineRepo()
	svc := newTestService(repo)
	m := seedMachine(t, repo, 3)

	newQty, err := svc.AdjustStock(context.Background(), m.ID, 5)

	require.NoError(t, err)
	assert.Equal(t, 8, newQty)
}

func TestService_AdjustStock_RejectsBelowZero(t *testing.T) {
	repo := newMockMachineRepo()
	svc := newTestService(repo)
	m := seedMachine(t, repo, 2)

	_, err := svc.AdjustStock(context.Background(), m.ID, -3)

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, 2, appErr.Details["available"])

	// Level untouched
	stored, err := repo.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Quantity)
}

func TestService_AdjustStock_UnknownMachine(t *testing.T) {
	repo := newMockMachineRepo()
	svc := newTestService(repo)

	_, err := svc.AdjustStock(context.Background(), id.New(), 1)

	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_FindByCategory_RejectsUnknown(t *testing.T) {
	repo := newMockMachineRepo()
	svc := newTestService(repo)

	_, err := svc.FindByCategory(context.Background(), Category("Teleporter"), domain.DefaultListFilter())

	require.Error(t, err)
	assert.True(t, apperror.IsAppError(err))
}

func TestService_FindLowStock(t *testing.T) {
	repo := newMockMachineRepo()
	svc := newTestService(repo)
	seedMachine(t, repo, 2)

	high := NewMachine("MCH00002", "Ribbon Blender RB-500", CategoryMixing)
	high.Quantity = 40
	repo.byID[high.ID] = high

	result, err := svc.FindLowStock(context.Background(), 5, domain.DefaultListFilter())

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "MCH00001", result.Items[0].Code)
}
