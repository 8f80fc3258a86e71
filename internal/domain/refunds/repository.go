package refunds

import (
	"context"
	"time"

	"machshop/internal/core/id"
	"machshop/internal/core/types"
	"machshop/internal/domain"
)

// ListFilter defines query filters for refund lists.
type ListFilter struct {
	domain.ListFilter

	OrderID    *id.ID
	CustomerID *id.ID
	Status     *RefundStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}

// Stats is an aggregate over a period. Amounts only count refunds whose
// status pays out (approved, completed, refunded).
type Stats struct {
	TotalCount   int64       `db:"total_count" json:"totalCount"`
	PendingCount int64       `db:"pending_count" json:"pendingCount"`
	PaidOutCount int64       `db:"paid_out_count" json:"paidOutCount"`
	TotalAmount  types.Money `db:"total_amount" json:"totalAmount"`
}

// Repository defines persistence for refund documents and their events.
type Repository interface {
	Create(ctx context.Context, r *Refund) error
	GetByID(ctx context.Context, refundID id.ID) (*Refund, error)
	GetByOrder(ctx context.Context, orderID id.ID) (*Refund, error)
	Update(ctx context.Context, r *Refund) error

	GetEvents(ctx context.Context, refundID id.ID) ([]ReturnEvent, error)
	SaveEvents(ctx context.Context, refundID id.ID, events []ReturnEvent) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Refund], error)
	GetStats(ctx context.Context, from, to time.Time) (Stats, error)
}
