package machine

import (
	"context"

	"machshop/internal/core/id"
	"machshop/internal/domain"
)

// Repository defines the interface for Machine persistence.
type Repository interface {
	domain.CatalogRepository[*Machine]

	// GetForUpdate retrieves machine with row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Machine, error)

	// AdjustQuantity applies a stock delta atomically and returns the new level.
	// Fails if the resulting quantity would be negative.
	AdjustQuantity(ctx context.Context, id id.ID, delta int) (int, error)

	// FindByCategory retrieves machines within one category.
	FindByCategory(ctx context.Context, category Category, filter domain.ListFilter) (domain.ListResult[*Machine], error)

	// FindLowStock retrieves machines with stock at or below the threshold.
	FindLowStock(ctx context.Context, threshold int, filter domain.ListFilter) (domain.ListResult[*Machine], error)
}
