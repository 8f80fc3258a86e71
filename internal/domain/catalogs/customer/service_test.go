package customer

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

type mockCustomerRepo struct {
	byID map[id.ID]*Customer
}

func newMockCustomerRepo() *mockCustomerRepo {
	return &mockCustomerRepo{byID: make(map[id.ID]*Customer)}
}

func (m *mockCustomerRepo) Create(ctx context.Context, e *Customer) error {
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *mockCustomerRepo) GetByID(ctx context.Context, entityID id.ID) (*Customer, error) {
	e, ok := m.byID[entityID]
	if !ok {
		return nil, apperror.NewNotFound("customer", entityID.String())
	}
	cp := *e
	return &cp, nil
}

func (m *mockCustomerRepo) GetByCode(ctx context.Context, code string) (*Customer, error) {
	for _, e := range m.byID {
		if e.Code == code {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("customer", code)
}

func (m *mockCustomerRepo) Update(ctx context.Context, e *Customer) error {
	if _, ok := m.byID[e.ID]; !ok {
		return apperror.NewNotFound("customer", e.ID.String())
	}
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *mockCustomerRepo) Delete(ctx context.Context, entityID id.ID) error {
	delete(m.byID, entityID)
	return nil
}

func (m *mockCustomerRepo) SetDeletionMark(ctx context.Context, entityID id.ID, marked bool) error {
	e, ok := m.byID[entityID]
	if !ok {
		return apperror.NewNotFound("customer", entityID.String())
	}
	e.DeletionMark = marked
	return nil
}

func (m *mockCustomerRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Customer], error) {
	var out []*Customer
	for _, e := range m.byID {
		cp := *e
		out = append(out, &cp)
	}
	return domain.ListResult[*Customer]{Items: out, TotalCount: int64(len(out))}, nil
}

func (m *mockCustomerRepo) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	_, ok := m.byID[entityID]
	return ok, nil
}

func (m *mockCustomerRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	for _, e := range m.byID {
		if e.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCustomerRepo) FindByNIC(ctx context.Context, nic string) (*Customer, error) {
	for _, e := range m.byID {
		if e.NIC != nil && *e.NIC == nic {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("customer", nic)
}

// --- helpers ---

func strPtr(s string) *string { return &s }

func newTestService(repo Repository) *Service {
	return NewService(repo, &mockTxManager{}, &numerator.MockGenerator{})
}

// --- tests ---

func TestService_Create_GeneratesCode(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := newTestService(repo)

	c := NewCustomer("", "Lanka Food Products")
	require.NoError(t, svc.Create(context.Background(), c))

	assert.NotEmpty(t, c.Code)
	assert.Contains(t, c.Code, "CUS")
}

func TestService_Create_RejectsDuplicateNIC(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := newTestService(repo)

	existing := NewCustomer("CUS00001", "R. M. Perera")
	existing.NIC = strPtr("751234567V")
	repo.byID[existing.ID] = existing

	c := NewCustomer("", "Someone Else")
	c.NIC = strPtr("751234567V")
	err := svc.Create(context.Background(), c)

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestService_Update_AllowsOwnNIC(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := newTestService(repo)

	c := NewCustomer("CUS00001", "R. M. Perera")
	c.NIC = strPtr("751234567V")
	repo.byID[c.ID] = c

	c.Name = "R. M. Perera Jr."
	require.NoError(t, svc.Update(context.Background(), c))
}

func TestService_FindByNIC(t *testing.T) {
	repo := newMockCustomerRepo()
	svc := newTestService(repo)

	c := NewCustomer("CUS00001", "S. Fernando")
	c.NIC = strPtr("882345678V")
	repo.byID[c.ID] = c

	found, err := svc.FindByNIC(context.Background(), "882345678V")
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	_, err = svc.FindByNIC(context.Background(), "000000000V")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
