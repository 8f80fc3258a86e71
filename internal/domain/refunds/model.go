// Package refunds tracks money owed back to customers. Each order carries at
// most one Refund document; individual returns and overpayments accumulate on
// it as events.
package refunds

import (
	"context"
	"time"

	"machshop/internal/core/apperror"
	"machshop/internal/core/entity"
	"machshop/internal/core/id"
	"machshop/internal/core/types"
	"machshop/internal/domain/catalogs/customer"
)

// RefundStatus is the approval workflow state.
type RefundStatus string

const (
	StatusPending   RefundStatus = "pending"
	StatusApproved  RefundStatus = "approved"
	StatusCompleted RefundStatus = "completed"
	StatusRejected  RefundStatus = "rejected"
	StatusRefunded  RefundStatus = "refunded"
)

// IsValidStatus reports whether s is a known workflow state.
func IsValidStatus(s RefundStatus) bool {
	switch s {
	case StatusPending, StatusApproved, StatusCompleted, StatusRejected, StatusRefunded:
		return true
	}
	return false
}

// CountsAsPaidOut reports whether a refund in this status reduces revenue.
func (s RefundStatus) CountsAsPaidOut() bool {
	return s == StatusApproved || s == StatusCompleted || s == StatusRefunded
}

// RefundType distinguishes a full-order refund from a partial one.
// Derived from amounts, never set directly.
type RefundType string

const (
	TypeFull    RefundType = "full"
	TypePartial RefundType = "partial"
)

// EventKind classifies a single refund event.
type EventKind string

const (
	// KindReturn is money owed for physically returned units.
	KindReturn EventKind = "return"
	// KindOverpayment is money owed because payments exceed the charged total.
	KindOverpayment EventKind = "overpayment"
)

// ReturnEvent is one accumulation step on a refund. EventID makes recording
// idempotent: replaying the same event changes nothing.
type ReturnEvent struct {
	EventID    id.ID       `db:"event_id" json:"eventId"`
	Kind       EventKind   `db:"kind" json:"kind"`
	MachineID  id.ID       `db:"machine_id" json:"machineId,omitempty"`
	ItemName   string      `db:"item_name" json:"itemName,omitempty"`
	Quantity   int         `db:"quantity" json:"quantity,omitempty"`
	Amount     types.Money `db:"amount" json:"amount"`
	OccurredAt time.Time   `db:"occurred_at" json:"occurredAt"`
}

// OrderRef carries the order identity a refund is created against.
// Kept as a plain value so this package stays independent of orders.
type OrderRef struct {
	OrderID     id.ID
	OrderNumber string
	CustomerID  id.ID
	Customer    customer.Info
	FinalTotal  types.Money
}

// Refund is the per-order refund document.
type Refund struct {
	entity.Document

	OrderID     id.ID  `db:"order_id" json:"orderId"`
	OrderNumber string `db:"order_number" json:"orderNumber"`

	CustomerID    id.ID `db:"customer_id" json:"customerId"`
	customer.Info       // snapshot columns, same shape as on orders

	// OriginalAmount is the order's charged total at refund creation; the
	// accumulated RefundAmount may never exceed it.
	OriginalAmount types.Money `db:"original_amount" json:"originalAmount"`
	RefundAmount   types.Money `db:"refund_amount" json:"refundAmount"`

	Status RefundStatus `db:"refund_status" json:"refundStatus"`
	Reason string       `db:"reason" json:"reason,omitempty"`

	Events []ReturnEvent `db:"-" json:"events"`

	ProcessedBy string `db:"processed_by" json:"processedBy,omitempty"`
}

// NewRefund opens a pending refund for an order.
func NewRefund(ref OrderRef) *Refund {
	return &Refund{
		Document:       entity.NewDocument(),
		OrderID:        ref.OrderID,
		OrderNumber:    ref.OrderNumber,
		CustomerID:     ref.CustomerID,
		Info:           ref.Customer,
		OriginalAmount: ref.FinalTotal,
		RefundAmount:   types.Zero(),
		Status:         StatusPending,
		Events:         make([]ReturnEvent, 0),
	}
}

// HasEvent reports whether an event with the given ID was already recorded.
func (r *Refund) HasEvent(eventID id.ID) bool {
	for i := range r.Events {
		if r.Events[i].EventID == eventID {
			return true
		}
	}
	return false
}

// AppendEvent records the event and re-derives the refund amount. Returns
// false when the event was already present.
func (r *Refund) AppendEvent(ev ReturnEvent) bool {
	if r.HasEvent(ev.EventID) {
		return false
	}
	r.Events = append(r.Events, ev)
	r.recalculate()
	return true
}

func (r *Refund) recalculate() {
	sum := types.Zero()
	for i := range r.Events {
		sum = sum.Add(r.Events[i].Amount)
	}
	sum = types.RoundMoney(sum)
	// Per-event rounding can push the sum a cent past the charged total on
	// the last return of an order. Owed money is capped at what was charged.
	if sum.GreaterThan(r.OriginalAmount) {
		sum = r.OriginalAmount
	}
	r.RefundAmount = sum
}

// Type derives full/partial from the accumulated amount.
func (r *Refund) Type() RefundType {
	if !r.OriginalAmount.IsZero() && r.RefundAmount.GreaterThanOrEqual(r.OriginalAmount) {
		return TypeFull
	}
	return TypePartial
}

// Validate implements entity.Validatable.
func (r *Refund) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(r.OrderID) {
		return apperror.NewValidation("order is required").
			WithDetail("field", "orderId")
	}

	if !IsValidStatus(r.Status) {
		return apperror.NewValidation("unknown refund status").
			WithDetail("field", "refundStatus").
			WithDetail("value", string(r.Status))
	}

	if r.RefundAmount.IsNegative() {
		return apperror.NewValidation("refund amount cannot be negative").
			WithDetail("field", "refundAmount")
	}

	if r.RefundAmount.GreaterThan(r.OriginalAmount) {
		return apperror.NewValidation("refund amount exceeds the original order total").
			WithDetail("refundAmount", r.RefundAmount.String()).
			WithDetail("originalAmount", r.OriginalAmount.String())
	}

	for i := range r.Events {
		ev := &r.Events[i]
		if id.IsNil(ev.EventID) {
			return apperror.NewValidation("event id is required").
				WithDetail("field", "events")
		}
		if ev.Kind != KindReturn && ev.Kind != KindOverpayment {
			return apperror.NewValidation("unknown event kind").
				WithDetail("field", "events").
				WithDetail("value", string(ev.Kind))
		}
		if ev.Amount.IsNegative() {
			return apperror.NewValidation("event amount cannot be negative").
				WithDetail("field", "events")
		}
	}

	return nil
}
