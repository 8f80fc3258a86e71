package orders

import (
	"context"
	"fmt"
	"time"

	"machshop/internal/core/apperror"
	corecontext "machshop/internal/core/context"
	"machshop/internal/core/id"
	"machshop/internal/core/tx"
	"machshop/internal/core/types"
	"machshop/internal/domain"
	"machshop/internal/domain/audit"
	"machshop/internal/domain/catalogs/customer"
	"machshop/internal/domain/catalogs/machine"
	"machshop/internal/domain/refunds"
	"machshop/pkg/logger"
	"machshop/pkg/numerator"
)

// Inventory is the stock collaborator. Satisfied by machine.Service.
type Inventory interface {
	GetByID(ctx context.Context, machineID id.ID) (*machine.Machine, error)
	AdjustStock(ctx context.Context, machineID id.ID, delta int) (int, error)
}

// CustomerSource provides the customer snapshot embedded in orders.
// Satisfied by customer.Service.
type CustomerSource interface {
	Snapshot(ctx context.Context, customerID id.ID) (customer.Info, error)
}

// RefundRecorder accumulates refund events. Satisfied by refunds.Service.
type RefundRecorder interface {
	RecordReturn(ctx context.Context, ref refunds.OrderRef, ev refunds.ReturnEvent) (*refunds.Refund, error)
}

// AuditLog persists mutation history entries. Satisfied by
// postgres.AuditService. Optional; write failures never surface to callers.
type AuditLog interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}

// Service provides business logic for sales orders.
type Service struct {
	repo      Repository
	txManager tx.Manager
	numerator numerator.Generator
	inventory Inventory
	customers CustomerSource
	refunds   RefundRecorder
	audit     AuditLog
}

// NewService creates a new order service.
func NewService(
	repo Repository,
	txManager tx.Manager,
	numerator numerator.Generator,
	inventory Inventory,
	customers CustomerSource,
	refundRecorder RefundRecorder,
) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		numerator: numerator,
		inventory: inventory,
		customers: customers,
		refunds:   refundRecorder,
	}
}

// SetAuditLog attaches the mutation history sink.
func (s *Service) SetAuditLog(l AuditLog) {
	s.audit = l
}

func (s *Service) auditChange(ctx context.Context, orderID id.ID, action string, changes map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogChange(ctx, "order", orderID, action, changes); err != nil {
		logger.Warn(ctx, "audit write failed", "order_id", orderID, "error", err)
	}
}

// CreateItemInput is one requested line on a new order.
type CreateItemInput struct {
	MachineID id.ID
	Quantity  int
	Note      string
}

// ExtraInput is one additional charge on a new order.
type ExtraInput struct {
	Description string
	Amount      types.Money
}

// CreateInput carries everything needed to register a sale.
type CreateInput struct {
	CustomerID        id.ID
	Items             []CreateItemInput
	Extras            []ExtraInput
	DiscountAmount    types.Money
	PaymentPeriodDays int
	InitialPayment    types.Money
	Notes             string
	ProcessedBy       string
	Date              time.Time
}

// Create registers a sale: snapshots the customer and machine details,
// freezes per-unit pricing, decrements stock and assigns a document number.
// Everything runs in one transaction, so an out-of-stock line rolls back
// the whole order.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	info, err := s.customers.Snapshot(ctx, input.CustomerID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("customer", input.CustomerID.String())
		}
		return nil, err
	}

	o := NewOrder(input.CustomerID, info)
	if !input.Date.IsZero() {
		o.Date = input.Date
	}
	o.Notes = input.Notes
	o.ProcessedBy = input.ProcessedBy
	o.DiscountAmount = input.DiscountAmount
	if input.PaymentPeriodDays > 0 {
		o.PaymentPeriodDays = input.PaymentPeriodDays
	}

	for _, item := range input.Items {
		m, err := s.inventory.GetByID(ctx, item.MachineID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewNotFound("machine", item.MachineID.String())
			}
			return nil, err
		}

		line := o.AddLine(MachineSnapshot{
			MachineID:      m.ID,
			Code:           m.Code,
			Name:           m.Name,
			Category:       string(m.Category),
			UnitPrice:      m.Price,
			VATPercentage:  m.VATPercentage,
			WarrantyMonths: m.WarrantyMonths,
		}, item.Quantity)
		line.Note = item.Note
	}

	for _, extra := range input.Extras {
		o.AddExtra(extra.Description, extra.Amount)
	}

	o.RecalculateTotals()

	due := o.Date.AddDate(0, 0, o.PaymentPeriodDays)
	o.DueDate = &due

	if input.InitialPayment.IsPositive() {
		if err := o.ApplyPayment(input.InitialPayment, input.ProcessedBy, time.Now().UTC()); err != nil {
			return nil, err
		}
	} else {
		o.ReconcilePayments()
	}

	audit.EnrichCreatedBy(ctx, o)

	if err := o.Validate(ctx); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.GetNextNumber(ctx, numerator.OrderConfig(), nil, o.Date)
		if err != nil {
			return fmt.Errorf("generate order number: %w", err)
		}
		o.Number = number

		for i := range o.Items {
			if _, err := s.inventory.AdjustStock(ctx, o.Items[i].MachineID, -o.Items[i].Quantity); err != nil {
				return err
			}
		}

		if err := s.repo.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := s.repo.SaveItems(ctx, o.ID, o.Items); err != nil {
			return fmt.Errorf("save order items: %w", err)
		}
		if err := s.repo.SaveExtras(ctx, o.ID, o.Extras); err != nil {
			return fmt.Errorf("save order extras: %w", err)
		}
		for i := range o.Payments {
			if err := s.repo.AppendPayment(ctx, o.ID, o.Payments[i]); err != nil {
				return fmt.Errorf("save order payment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created",
		"order_id", o.ID, "number", o.Number,
		"customer_id", o.CustomerID, "final_total", o.FinalTotal)
	s.auditChange(ctx, o.ID, "create", map[string]any{
		"number":      o.Number,
		"customer_id": o.CustomerID.String(),
		"final_total": o.FinalTotal,
		"items":       len(o.Items),
	})
	return o, nil
}

// load fetches an order with all table parts, keeping the stored status.
func (s *Service) load(ctx context.Context, orderID id.ID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("order", orderID.String())
		}
		return nil, err
	}
	return o, s.loadParts(ctx, o)
}

func (s *Service) loadParts(ctx context.Context, o *Order) error {
	var err error
	if o.Items, err = s.repo.GetItems(ctx, o.ID); err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	if o.Extras, err = s.repo.GetExtras(ctx, o.ID); err != nil {
		return fmt.Errorf("load order extras: %w", err)
	}
	if o.Payments, err = s.repo.GetPayments(ctx, o.ID); err != nil {
		return fmt.Errorf("load order payments: %w", err)
	}
	return nil
}

// GetByID retrieves an order. The returned status is corrected against the
// payment ledger, never the raw stored value.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Status = o.EffectiveStatus()
	return o, nil
}

// GetByNumber retrieves an order by document number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Order, error) {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("order", number)
		}
		return nil, err
	}
	if err := s.loadParts(ctx, o); err != nil {
		return nil, err
	}
	o.Status = o.EffectiveStatus()
	return o, nil
}

// List retrieves orders matching the filter, with corrected statuses.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error) {
	if filter.Limit <= 0 {
		filter.Limit = domain.DefaultListFilter().Limit
	}

	result, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*Order]{}, err
	}
	for _, o := range result.Items {
		o.Status = o.EffectiveStatus()
	}
	return result, nil
}

// UpdateInput carries the editable order fields. Nil means keep as is.
type UpdateInput struct {
	DiscountAmount    *types.Money
	Extras            *[]ExtraInput
	Notes             *string
	PaymentPeriodDays *int
}

// Update edits the order-level fields and recomputes totals. Line items are
// immutable after the sale; returns go through ReturnItem.
func (s *Service) Update(ctx context.Context, orderID id.ID, input UpdateInput) (*Order, error) {
	var result *Order

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.load(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled {
			return apperror.NewBusinessRule("ORDER_CANCELLED", "cannot edit a cancelled order")
		}

		if input.DiscountAmount != nil {
			o.DiscountAmount = *input.DiscountAmount
		}
		if input.Extras != nil {
			o.Extras = o.Extras[:0]
			for _, extra := range *input.Extras {
				o.AddExtra(extra.Description, extra.Amount)
			}
		}
		if input.Notes != nil {
			o.Notes = *input.Notes
		}
		if input.PaymentPeriodDays != nil && *input.PaymentPeriodDays > 0 {
			o.PaymentPeriodDays = *input.PaymentPeriodDays
			if o.DueDate != nil {
				due := o.Date.AddDate(0, 0, o.PaymentPeriodDays)
				o.DueDate = &due
			}
		}

		o.RecalculateTotals()
		o.ReconcilePayments()
		audit.EnrichUpdatedBy(ctx, o)

		if err := o.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		if err := s.repo.SaveExtras(ctx, o.ID, o.Extras); err != nil {
			return fmt.Errorf("save order extras: %w", err)
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order updated", "order_id", orderID, "final_total", result.FinalTotal)
	s.auditChange(ctx, orderID, "update", map[string]any{
		"final_total":     result.FinalTotal,
		"discount_amount": result.DiscountAmount,
		"extras_total":    result.ExtrasTotal,
	})
	return result, nil
}

// Cancel voids the order and puts the still-active units back in stock.
func (s *Service) Cancel(ctx context.Context, orderID id.ID) (*Order, error) {
	var result *Order

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.load(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled {
			return apperror.NewBusinessRule("ORDER_CANCELLED", "order is already cancelled")
		}

		for i := range o.Items {
			if active := o.Items[i].ActiveQuantity(); active > 0 {
				if _, err := s.inventory.AdjustStock(ctx, o.Items[i].MachineID, active); err != nil {
					return fmt.Errorf("restock machine %s: %w", o.Items[i].MachineID, err)
				}
			}
		}

		o.Status = StatusCancelled
		audit.EnrichUpdatedBy(ctx, o)
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order cancelled", "order_id", orderID, "number", result.Number)
	s.auditChange(ctx, orderID, "update", map[string]any{
		"order_status": string(StatusCancelled),
	})
	return result, nil
}

// UpdateStatus sets the stored lifecycle status. Cancellation routes through
// Cancel so stock is restored; Returned can only be reached via returns.
// Completed and Processing are reconciled against the ledger, so a manual
// value that contradicts the money state is corrected, not stored blindly.
func (s *Service) UpdateStatus(ctx context.Context, orderID id.ID, status Status) (*Order, error) {
	switch status {
	case StatusCancelled:
		return s.Cancel(ctx, orderID)
	case StatusReturned:
		return nil, apperror.NewBusinessRule("INVALID_STATUS",
			"returned status is set by item returns, not directly")
	case StatusCompleted, StatusProcessing:
	default:
		return nil, apperror.NewValidation("unknown order status").
			WithDetail("field", "orderStatus").
			WithDetail("value", string(status))
	}

	var result *Order

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.load(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled {
			return apperror.NewBusinessRule("ORDER_CANCELLED", "cannot change status of a cancelled order")
		}

		o.Status = status
		o.ReconcilePayments()
		audit.EnrichUpdatedBy(ctx, o)
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditChange(ctx, orderID, "update", map[string]any{
		"order_status":   string(result.Status),
		"payment_status": string(result.PaymentStatus),
	})
	return result, nil
}

// PaymentInfo summarizes the ledger after a mutation.
type PaymentInfo struct {
	PaidAmount      types.Money   `json:"paidAmount"`
	RemainingAmount types.Money   `json:"remainingAmount"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	RefundNeeded    types.Money   `json:"refundNeeded"`
}

// ReturnResult reports the outcome of a processed return.
type ReturnResult struct {
	OrderID     id.ID  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	MachineID   id.ID  `json:"machineId"`
	ItemName    string `json:"itemName"`

	ReturnedQuantity int         `json:"returnedQuantity"`
	ReturnAmount     types.Money `json:"returnAmount"`
	RefundBaseAmount types.Money `json:"refundBaseAmount"`
	RefundVATAmount  types.Money `json:"refundVatAmount"`

	UpdatedStock int                  `json:"updatedStock"`
	RefundID     id.ID                `json:"refundId"`
	RefundStatus refunds.RefundStatus `json:"refundStatus"`
	Payment      PaymentInfo          `json:"payment"`
}

// ReturnItem processes the return of returnQuantity units of one machine on
// an order. Side effects apply in a fixed sequence: the order mutation is
// persisted first, then stock is incremented, then the refund is recorded.
// A failure after the first step compensates everything already persisted
// instead of leaving the order half-returned.
func (s *Service) ReturnItem(ctx context.Context, orderID, machineID id.ID, returnQuantity int) (*ReturnResult, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCancelled {
		return nil, apperror.NewBusinessRule("ORDER_CANCELLED", "cannot return items on a cancelled order")
	}

	line := o.FindLine(machineID)
	if line == nil {
		return nil, apperror.NewNotFound("order item", machineID.String())
	}

	available := line.AvailableToReturn()
	if returnQuantity < 1 || returnQuantity > available {
		return nil, apperror.NewInvalidReturnQuantity(returnQuantity, available)
	}

	// Inventory lookup failures must surface before anything is persisted.
	if _, err := s.inventory.GetByID(ctx, machineID); err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("machine", machineID.String())
		}
		return nil, err
	}

	// Return value uses the frozen per-unit split and the order's discount
	// ratio over the original total, so it does not drift as lines shrink.
	qty := types.NewMoneyFromInt(int64(returnQuantity))
	multiplier := types.NewMoneyFromInt(1).Sub(o.DiscountRatio())
	returnAmount := types.RoundMoney(line.UnitPrice.Mul(qty).Mul(multiplier))
	refundBase := types.RoundMoney(line.BasePerUnit.Mul(qty).Mul(multiplier))
	refundVAT := returnAmount.Sub(refundBase)

	now := time.Now().UTC()
	snap := o.TakeSnapshot()

	line.applyReturn(returnQuantity, now)
	o.RecalculateTotals()
	if o.FullyReturned() {
		o.Status = StatusReturned
	}
	o.ReconcilePayments()
	audit.EnrichUpdatedBy(ctx, o)
	refundNeeded := o.Overpayment()

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		return s.repo.SaveItems(ctx, o.ID, o.Items)
	})
	if err != nil {
		return nil, err
	}

	newStock, err := s.inventory.AdjustStock(ctx, machineID, returnQuantity)
	if err != nil {
		s.compensateOrder(ctx, o, snap)
		return nil, fmt.Errorf("restock machine %s: %w", machineID, err)
	}

	ref := refunds.OrderRef{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		CustomerID:  o.CustomerID,
		Customer:    o.Info,
		FinalTotal:  o.FinalTotal,
	}
	refund, err := s.refunds.RecordReturn(ctx, ref, refunds.ReturnEvent{
		EventID:    id.New(),
		Kind:       refunds.KindReturn,
		MachineID:  machineID,
		ItemName:   line.Name,
		Quantity:   returnQuantity,
		Amount:     returnAmount,
		OccurredAt: now,
	})
	if err != nil {
		if _, stockErr := s.inventory.AdjustStock(ctx, machineID, -returnQuantity); stockErr != nil {
			logger.Error(ctx, "stock compensation failed",
				"order_id", o.ID, "machine_id", machineID, "error", stockErr)
		}
		s.compensateOrder(ctx, o, snap)
		return nil, fmt.Errorf("record refund: %w", err)
	}

	if refundNeeded.IsPositive() {
		// Informational in the common case. Recorded best-effort so a refund
		// ledger hiccup does not undo a completed physical return.
		if _, err := s.refunds.RecordReturn(ctx, ref, refunds.ReturnEvent{
			EventID:    id.New(),
			Kind:       refunds.KindOverpayment,
			Amount:     refundNeeded,
			OccurredAt: now,
		}); err != nil {
			logger.Warn(ctx, "overpayment event not recorded",
				"order_id", o.ID, "amount", refundNeeded, "error", err)
		}
	}

	logger.Info(ctx, "order item returned",
		"order_id", o.ID, "machine_id", machineID,
		"quantity", returnQuantity, "amount", returnAmount)
	s.auditChange(ctx, o.ID, "return", map[string]any{
		"machine_id":    machineID.String(),
		"item_name":     line.Name,
		"quantity":      returnQuantity,
		"return_amount": returnAmount,
		"refund_id":     refund.ID.String(),
	})

	return &ReturnResult{
		OrderID:          o.ID,
		OrderNumber:      o.Number,
		MachineID:        machineID,
		ItemName:         line.Name,
		ReturnedQuantity: returnQuantity,
		ReturnAmount:     returnAmount,
		RefundBaseAmount: refundBase,
		RefundVATAmount:  refundVAT,
		UpdatedStock:     newStock,
		RefundID:         refund.ID,
		RefundStatus:     refund.Status,
		Payment: PaymentInfo{
			PaidAmount:      o.PaidAmount,
			RemainingAmount: o.RemainingAmount,
			PaymentStatus:   o.PaymentStatus,
			RefundNeeded:    refundNeeded,
		},
	}, nil
}

// compensateOrder restores the pre-return order state after a later step of
// the return sequence failed. The first persist already advanced the stored
// version, so the restored state is saved against that newer version.
func (s *Service) compensateOrder(ctx context.Context, o *Order, snap Snapshot) {
	current := o.Version
	o.Restore(snap)
	o.SetVersion(current)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		return s.repo.SaveItems(ctx, o.ID, o.Items)
	})
	if err != nil {
		logger.Error(ctx, "order compensation failed",
			"order_id", o.ID, "error", err)
	}
}

// ApplyPayment records a payment against the order and re-derives the
// ledger fields.
func (s *Service) ApplyPayment(ctx context.Context, orderID id.ID, amount types.Money, actor string) (*Order, error) {
	if actor == "" {
		actor = corecontext.GetUserName(ctx)
	}

	var result *Order

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.load(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled {
			return apperror.NewBusinessRule("ORDER_CANCELLED", "cannot pay a cancelled order")
		}

		if err := o.ApplyPayment(amount, actor, time.Now().UTC()); err != nil {
			return err
		}
		audit.EnrichUpdatedBy(ctx, o)

		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		entry := o.Payments[len(o.Payments)-1]
		if err := s.repo.AppendPayment(ctx, o.ID, entry); err != nil {
			return fmt.Errorf("save order payment: %w", err)
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order payment applied",
		"order_id", orderID, "amount", amount,
		"paid", result.PaidAmount, "remaining", result.RemainingAmount)
	s.auditChange(ctx, orderID, "pay", map[string]any{
		"amount":         amount,
		"paid_amount":    result.PaidAmount,
		"payment_status": string(result.PaymentStatus),
	})
	return result, nil
}

// RecalculateTotals reloads an order, recomputes every derived figure and
// persists the result. Used after manual data fixes.
func (s *Service) RecalculateTotals(ctx context.Context, orderID id.ID) (*Order, error) {
	var result *Order

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.load(ctx, orderID)
		if err != nil {
			return err
		}

		o.RecalculateTotals()
		o.ReconcilePayments()

		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		if err := s.repo.SaveItems(ctx, o.ID, o.Items); err != nil {
			return fmt.Errorf("save order items: %w", err)
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetStats returns order aggregates for a period.
func (s *Service) GetStats(ctx context.Context, from, to time.Time) (Stats, error) {
	return s.repo.GetStats(ctx, from, to)
}
