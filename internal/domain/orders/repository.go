package orders

import (
	"context"
	"time"

	"machshop/internal/core/id"
	"machshop/internal/core/types"
	"machshop/internal/domain"
)

// ListFilter defines query filters for order lists.
type ListFilter struct {
	domain.ListFilter

	CustomerID    *id.ID
	Status        *Status
	PaymentStatus *PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// Stats is an order aggregate over a period.
type Stats struct {
	TotalCount     int64       `db:"total_count" json:"totalCount"`
	CompletedCount int64       `db:"completed_count" json:"completedCount"`
	CancelledCount int64       `db:"cancelled_count" json:"cancelledCount"`
	TotalRevenue   types.Money `db:"total_revenue" json:"totalRevenue"`
	TotalOwed      types.Money `db:"total_owed" json:"totalOwed"`
}

// Repository defines persistence for orders and their table parts.
// Update applies optimistic locking on the version column.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, orderID id.ID) error

	GetItems(ctx context.Context, orderID id.ID) ([]LineItem, error)
	SaveItems(ctx context.Context, orderID id.ID, items []LineItem) error
	GetExtras(ctx context.Context, orderID id.ID) ([]ExtraCharge, error)
	SaveExtras(ctx context.Context, orderID id.ID, extras []ExtraCharge) error
	GetPayments(ctx context.Context, orderID id.ID) ([]PaymentEntry, error)
	AppendPayment(ctx context.Context, orderID id.ID, entry PaymentEntry) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error)
	GetStats(ctx context.Context, from, to time.Time) (Stats, error)
}
