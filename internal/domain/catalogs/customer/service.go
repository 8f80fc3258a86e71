package customer

import (
	"context"
	"fmt"
	"time"

	"machshop/internal/core/apperror"
	"machshop/internal/core/id"
	"machshop/internal/core/tx"
	"machshop/internal/domain"
	"machshop/pkg/numerator"
)

// Service provides business logic for the Customer catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Customer] // Embedded for delegation
	repo                              Repository
	numerator                         numerator.Generator
}

// NewService creates a new Customer service.
func NewService(
	repo Repository,
	txManager tx.Manager,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Customer]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "customer",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      numerator,
	}

	// Register hooks for entity-specific logic
	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks before create.
func (s *Service) prepareForCreate(ctx context.Context, c *Customer) error {
	// Generate code if not provided
	if c.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.Config{
			Prefix:      "CUS",
			PadWidth:    5,
			ResetPeriod: "never",
		}, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		c.Code = code
	}

	return s.checkNICUnique(ctx, c)
}

// prepareForUpdate handles uniqueness checks before update.
func (s *Service) prepareForUpdate(ctx context.Context, c *Customer) error {
	return s.checkNICUnique(ctx, c)
}

// --- Entity-specific methods (not in base CatalogService) ---

// FindByNIC retrieves a customer by NIC number.
func (s *Service) FindByNIC(ctx context.Context, nic string) (*Customer, error) {
	return s.repo.FindByNIC(ctx, nic)
}

// checkNICUnique checks if the NIC is already used by another customer.
func (s *Service) checkNICUnique(ctx context.Context, c *Customer) error {
	if c.NIC == nil || *c.NIC == "" {
		return nil
	}

	existing, err := s.repo.FindByNIC(ctx, *c.NIC)
	if err != nil {
		// Not found is OK; other errors must be propagated (DB errors, timeouts, etc.).
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != c.ID {
		return apperror.NewConflict("customer with this NIC already exists").
			WithDetail("nic", *c.NIC)
	}
	return nil
}

// Snapshot loads a customer and captures the embedded document snapshot.
func (s *Service) Snapshot(ctx context.Context, customerID id.ID) (Info, error) {
	c, err := s.GetByID(ctx, customerID)
	if err != nil {
		return Info{}, err
	}
	return c.Snapshot(), nil
}
