package customer

import (
	"context"

	"machshop/internal/domain"
)

// Repository defines the interface for Customer persistence.
type Repository interface {
	domain.CatalogRepository[*Customer]

	// FindByNIC retrieves a customer by NIC number.
	FindByNIC(ctx context.Context, nic string) (*Customer, error)
}
