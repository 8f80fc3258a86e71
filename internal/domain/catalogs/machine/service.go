package machine

import (
	"context"
	"fmt"
	"time"

	"machshop/internal/core/apperror"
	"machshop/internal/core/id"
	"machshop/internal/core/tx"
	"machshop/internal/domain"
	"machshop/pkg/logger"
	"machshop/pkg/numerator"
)

// Service provides business logic for the Machine catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Machine]
	repo      Repository
	txManager tx.Manager
	numerator numerator.Generator
}

// NewService creates a new Machine service.
func NewService(
	repo Repository,
	txManager tx.Manager,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Machine]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "machine",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		txManager:      txManager,
		numerator:      numerator,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks.
func (s *Service) prepareForCreate(ctx context.Context, m *Machine) error {
	// Generate code if not provided
	if m.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.Config{
			Prefix:      "MCH",
			PadWidth:    5,
			ResetPeriod: "never",
		}, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		m.Code = code
	}

	if exists, err := s.repo.ExistsByCode(ctx, m.Code); err == nil && exists {
		return apperror.NewDuplicate("machine", "code", m.Code)
	}

	return nil
}

// --- Entity-specific methods ---

// GetStock returns the current stock level for a machine.
func (s *Service) GetStock(ctx context.Context, machineID id.ID) (int, error) {
	m, err := s.GetByID(ctx, machineID)
	if err != nil {
		return 0, err
	}
	return m.Quantity, nil
}

// AdjustStock applies a stock delta (positive for receipt, negative for
// expense). Expense beyond the available level is rejected before touching
// the row, so the caller gets the current availability in the error.
func (s *Service) AdjustStock(ctx context.Context, machineID id.ID, delta int) (int, error) {
	var newQty int

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetForUpdate(ctx, machineID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("machine", machineID.String())
			}
			return err
		}

		if delta < 0 && m.Quantity+delta < 0 {
			return apperror.NewInsufficientStock(machineID.String(), -delta, m.Quantity)
		}

		newQty, err = s.repo.AdjustQuantity(ctx, machineID, delta)
		if err != nil {
			return fmt.Errorf("adjust stock: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "machine stock adjusted",
		"machine_id", machineID, "delta", delta, "quantity", newQty)
	return newQty, nil
}

// FindByCategory retrieves machines within one category.
func (s *Service) FindByCategory(ctx context.Context, category Category, filter domain.ListFilter) (domain.ListResult[*Machine], error) {
	if !IsValidCategory(category) {
		return domain.ListResult[*Machine]{}, apperror.NewValidation("invalid machine category").
			WithDetail("field", "category").
			WithDetail("value", string(category))
	}
	return s.repo.FindByCategory(ctx, category, filter)
}

// FindLowStock retrieves machines with stock at or below the threshold.
func (s *Service) FindLowStock(ctx context.Context, threshold int, filter domain.ListFilter) (domain.ListResult[*Machine], error) {
	return s.repo.FindLowStock(ctx, threshold, filter)
}
