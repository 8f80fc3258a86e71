// Package orders provides the sales Order document and its financial logic:
// totals calculation, item returns, and the payment ledger.
package orders

import (
	"context"
	"time"

	"machshop/internal/core/apperror"
	"machshop/internal/core/entity"
	"machshop/internal/core/id"
	"machshop/internal/core/types"
	"machshop/internal/domain/catalogs/customer"
)

// Status defines the order lifecycle status.
// Stored for the audit trail, but derived from payment state on every read
// (see EffectiveStatus).
type Status string

const (
	StatusProcessing Status = "Processing"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
	StatusReturned   Status = "Returned"
)

// IsValidStatus reports whether s is a known workflow state.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// PaymentStatus defines how much of the order has been paid.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentFull    PaymentStatus = "full"
)

// IsValidPaymentStatus reports whether s is a known payment state.
func IsValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPartial, PaymentFull:
		return true
	}
	return false
}

// LineState describes the return state of a single line item.
type LineState string

const (
	LineActive            LineState = "active"
	LinePartiallyReturned LineState = "partially_returned"
	LineFullyReturned     LineState = "fully_returned"
)

// DefaultPaymentPeriodDays is the credit period granted when none is specified.
const DefaultPaymentPeriodDays = 60

// Order represents one sale of machines to a customer.
type Order struct {
	entity.Document

	// Customer reference plus an immutable snapshot of their details
	CustomerID    id.ID `db:"customer_id" json:"customerId"`
	customer.Info       // snapshot columns (customer_name, customer_phone, ...)

	// Table parts
	Items    []LineItem     `db:"-" json:"items"`
	Extras   []ExtraCharge  `db:"-" json:"extras"`
	Payments []PaymentEntry `db:"-" json:"paymentHistory"`

	// Monetary totals. Subtotal, VATAmount and TotalBeforeDiscount reflect
	// active (non-returned) quantity. FinalTotal is the amount actually
	// charged at sale time and never drops when items come back.
	Subtotal            types.Money `db:"subtotal" json:"subtotal"`
	VATAmount           types.Money `db:"vat_amount" json:"vatAmount"`
	TotalBeforeDiscount types.Money `db:"total_before_discount" json:"totalBeforeDiscount"`
	DiscountAmount      types.Money `db:"discount_amount" json:"discountAmount"`
	ExtrasTotal         types.Money `db:"extras_total" json:"extrasTotal"`
	FinalTotal          types.Money `db:"final_total" json:"finalTotal"`

	// Payment ledger
	PaidAmount        types.Money   `db:"paid_amount" json:"paidAmount"`
	RemainingAmount   types.Money   `db:"remaining_amount" json:"remainingAmount"`
	PaymentStatus     PaymentStatus `db:"payment_status" json:"paymentStatus"`
	DueDate           *time.Time    `db:"due_date" json:"dueDate,omitempty"`
	PaymentPeriodDays int           `db:"payment_period_days" json:"paymentPeriodDays"`

	// Status is the stored lifecycle status (see EffectiveStatus)
	Status Status `db:"order_status" json:"orderStatus"`

	// ProcessedBy is the staff member who handled the sale
	ProcessedBy string `db:"processed_by" json:"processedBy,omitempty"`
}

// LineItem is one machine line within an order. Price, VAT and warranty are
// snapshotted from the machine catalog at sale time.
type LineItem struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	MachineID id.ID  `db:"machine_id" json:"machineId"`
	ItemCode  string `db:"item_code" json:"itemCode"`
	Name      string `db:"name" json:"name"`
	Category  string `db:"category" json:"category"`

	Quantity       int         `db:"quantity" json:"quantity"`
	UnitPrice      types.Money `db:"unit_price" json:"unitPrice"` // VAT-inclusive
	VATPercentage  types.Money `db:"vat_percentage" json:"vatPercentage"`
	WarrantyMonths int         `db:"warranty_months" json:"warrantyMonths"`

	// BasePerUnit and VATPerUnit are computed exactly once when the line is
	// created and reused for every later return, so repeated partial returns
	// of the same line stay arithmetically consistent even if the machine's
	// VAT rate changes afterwards.
	BasePerUnit types.Money `db:"base_per_unit" json:"basePerUnit"`
	VATPerUnit  types.Money `db:"vat_per_unit" json:"vatPerUnit"`

	// Current-view amounts over active quantity, rounded for persistence
	Subtotal     types.Money `db:"subtotal" json:"subtotal"`
	VATAmount    types.Money `db:"vat_amount" json:"vatAmount"`
	TotalWithVAT types.Money `db:"total_with_vat" json:"totalWithVat"`

	// Return state. ReturnedQuantity only ever grows.
	ReturnedQuantity int        `db:"returned_quantity" json:"returnedQuantity"`
	Returned         bool       `db:"returned" json:"returned"`
	ReturnedAt       *time.Time `db:"returned_at" json:"returnedAt,omitempty"`

	Note string `db:"note" json:"note,omitempty"`
}

// ExtraCharge is an additional charge on the order (delivery, installation).
type ExtraCharge struct {
	LineID      id.ID       `db:"line_id" json:"lineId"`
	Description string      `db:"description" json:"description"`
	Amount      types.Money `db:"amount" json:"amount"`
}

// PaymentEntry is one append-only payment history row.
type PaymentEntry struct {
	EntryID   id.ID       `db:"entry_id" json:"entryId"`
	Amount    types.Money `db:"amount" json:"amount"`
	Date      time.Time   `db:"date" json:"date"`
	UpdatedBy string      `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewOrder creates an order for a customer with empty table parts.
func NewOrder(customerID id.ID, info customer.Info) *Order {
	return &Order{
		Document:          entity.NewDocument(),
		CustomerID:        customerID,
		Info:              info,
		Items:             make([]LineItem, 0),
		Extras:            make([]ExtraCharge, 0),
		Payments:          make([]PaymentEntry, 0),
		PaymentStatus:     PaymentPending,
		PaymentPeriodDays: DefaultPaymentPeriodDays,
		Status:            StatusProcessing,
	}
}

// MachineSnapshot carries the catalog fields a line item freezes at sale time.
type MachineSnapshot struct {
	MachineID      id.ID
	Code           string
	Name           string
	Category       string
	UnitPrice      types.Money
	VATPercentage  types.Money
	WarrantyMonths int
}

// AddLine appends a line item, freezing the per-unit base/VAT split.
// The unit price is VAT-inclusive, so the base is divided out of it:
// at 18% a 118.00 unit carries 100.00 base and 18.00 VAT.
func (o *Order) AddLine(m MachineSnapshot, quantity int) *LineItem {
	basePerUnit := m.UnitPrice.Div(types.NewMoneyFromInt(1).Add(types.Percent(m.VATPercentage)))
	vatPerUnit := m.UnitPrice.Sub(basePerUnit)

	line := LineItem{
		LineID:         id.New(),
		LineNo:         len(o.Items) + 1,
		MachineID:      m.MachineID,
		ItemCode:       m.Code,
		Name:           m.Name,
		Category:       m.Category,
		Quantity:       quantity,
		UnitPrice:      m.UnitPrice,
		VATPercentage:  m.VATPercentage,
		WarrantyMonths: m.WarrantyMonths,
		BasePerUnit:    basePerUnit,
		VATPerUnit:     vatPerUnit,
	}

	o.Items = append(o.Items, line)
	return &o.Items[len(o.Items)-1]
}

// AddExtra appends an extra charge.
func (o *Order) AddExtra(description string, amount types.Money) {
	o.Extras = append(o.Extras, ExtraCharge{
		LineID:      id.New(),
		Description: description,
		Amount:      amount,
	})
}

// FindLine returns the line item for a machine, or nil.
func (o *Order) FindLine(machineID id.ID) *LineItem {
	for i := range o.Items {
		if o.Items[i].MachineID == machineID {
			return &o.Items[i]
		}
	}
	return nil
}

// State returns the return state of the line.
func (li *LineItem) State() LineState {
	switch {
	case li.ReturnedQuantity == 0:
		return LineActive
	case li.ReturnedQuantity < li.Quantity:
		return LinePartiallyReturned
	default:
		return LineFullyReturned
	}
}

// ActiveQuantity returns units not yet returned.
func (li *LineItem) ActiveQuantity() int {
	return li.Quantity - li.ReturnedQuantity
}

// AvailableToReturn returns units still eligible for return.
func (li *LineItem) AvailableToReturn() int {
	return li.ActiveQuantity()
}

// applyReturn records qty returned units. ReturnedAt is set on the first
// return only and never cleared; Returned flips once the line is consumed.
func (li *LineItem) applyReturn(qty int, at time.Time) {
	li.ReturnedQuantity += qty
	if li.ReturnedAt == nil {
		t := at
		li.ReturnedAt = &t
	}
	if li.ReturnedQuantity >= li.Quantity {
		li.Returned = true
	}
}

// RecalculateTotals recomputes the stored totals from the table parts.
// FinalTotal follows the original ordered quantity and is therefore stable
// across returns; the current-view fields track what remains active.
func (o *Order) RecalculateTotals() {
	t := CalculateTotals(o.Items, o.DiscountAmount, o.Extras)

	o.Subtotal = t.Subtotal
	o.VATAmount = t.VATAmount
	o.TotalBeforeDiscount = t.TotalBeforeDiscount
	o.DiscountAmount = t.DiscountAmount
	o.ExtrasTotal = t.ExtrasTotal
	o.FinalTotal = t.FinalTotal

	for i := range o.Items {
		li := &o.Items[i]
		active := int64(li.ActiveQuantity())
		li.Subtotal = types.RoundMoney(li.BasePerUnit.Mul(types.NewMoneyFromInt(active)))
		li.VATAmount = types.RoundMoney(li.VATPerUnit.Mul(types.NewMoneyFromInt(active)))
		li.TotalWithVAT = types.RoundMoney(li.UnitPrice.Mul(types.NewMoneyFromInt(active)))
	}
}

// DiscountRatio returns discount as a fraction of the original pre-discount
// total (0 when the order has no value yet).
func (o *Order) DiscountRatio() types.Money {
	original := originalTotalBeforeDiscount(o.Items)
	if original.IsZero() {
		return types.Zero()
	}
	return o.DiscountAmount.Div(original)
}

// ReconcilePayments re-derives remaining amount, payment status and order
// status from the ledger. DueDate is cleared once nothing is owed.
func (o *Order) ReconcilePayments() {
	remaining := o.FinalTotal.Sub(o.PaidAmount)
	if remaining.IsNegative() {
		remaining = types.Zero()
	}
	o.RemainingAmount = types.RoundMoney(remaining)

	switch {
	case o.RemainingAmount.IsZero():
		o.PaymentStatus = PaymentFull
	case o.PaidAmount.IsPositive():
		o.PaymentStatus = PaymentPartial
	default:
		o.PaymentStatus = PaymentPending
	}

	if o.Status != StatusCancelled && o.Status != StatusReturned {
		if o.RemainingAmount.IsZero() {
			o.Status = StatusCompleted
		} else {
			o.Status = StatusProcessing
		}
	}

	if o.RemainingAmount.IsZero() {
		o.DueDate = nil
	}
}

// Overpayment returns how much the paid amount exceeds the charged total
// (zero in the common case).
func (o *Order) Overpayment() types.Money {
	over := o.PaidAmount.Sub(o.FinalTotal)
	if over.IsNegative() {
		return types.Zero()
	}
	return types.RoundMoney(over)
}

// EffectiveStatus corrects a drifted stored status against the ledger.
// A Completed order that still owes money reads as Processing, and vice
// versa. Cancelled and Returned are authoritative.
func (o *Order) EffectiveStatus() Status {
	switch o.Status {
	case StatusCancelled, StatusReturned:
		return o.Status
	}
	if o.RemainingAmount.IsPositive() {
		return StatusProcessing
	}
	return StatusCompleted
}

// FullyReturned reports whether every line has been completely returned.
func (o *Order) FullyReturned() bool {
	if len(o.Items) == 0 {
		return false
	}
	for i := range o.Items {
		if !o.Items[i].Returned {
			return false
		}
	}
	return true
}

// ApplyPayment validates and records a payment against the ledger.
// Rejects non-positive amounts and amounts exceeding what is still owed.
func (o *Order) ApplyPayment(amount types.Money, actor string, at time.Time) error {
	if !amount.IsPositive() {
		return apperror.NewInvalidInput("payment amount must be positive").
			WithDetail("amount", amount.String())
	}

	remaining := o.FinalTotal.Sub(o.PaidAmount)
	if amount.GreaterThan(remaining) {
		return apperror.NewPaymentExceedsRemaining(amount.String(), remaining.String())
	}

	o.PaidAmount = types.RoundMoney(o.PaidAmount.Add(amount))
	o.Payments = append(o.Payments, PaymentEntry{
		EntryID:   id.New(),
		Amount:    amount,
		Date:      at,
		UpdatedBy: actor,
	})
	o.ReconcilePayments()

	return nil
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(o.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}

	if len(o.Items) == 0 {
		return apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}

	for i := range o.Items {
		li := &o.Items[i]
		if id.IsNil(li.MachineID) {
			return apperror.NewValidation("machine is required").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if li.Quantity < 1 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if li.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if li.ReturnedQuantity < 0 || li.ReturnedQuantity > li.Quantity {
			return apperror.NewValidation("returned quantity out of range").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
	}

	if o.DiscountAmount.IsNegative() {
		return apperror.NewValidation("discount cannot be negative").
			WithDetail("field", "discountAmount")
	}

	for i := range o.Extras {
		if o.Extras[i].Amount.IsNegative() {
			return apperror.NewValidation("extra charge cannot be negative").
				WithDetail("field", "extras").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// Snapshot captures the mutable order state for compensation on a failed
// multi-step operation. Table part slices are deep-copied.
type Snapshot struct {
	Items    []LineItem
	Payments []PaymentEntry

	Subtotal            types.Money
	VATAmount           types.Money
	TotalBeforeDiscount types.Money
	FinalTotal          types.Money

	PaidAmount      types.Money
	RemainingAmount types.Money
	PaymentStatus   PaymentStatus
	DueDate         *time.Time

	Status  Status
	Version int
}

// TakeSnapshot copies the state a return mutates.
func (o *Order) TakeSnapshot() Snapshot {
	s := Snapshot{
		Items:               make([]LineItem, len(o.Items)),
		Payments:            make([]PaymentEntry, len(o.Payments)),
		Subtotal:            o.Subtotal,
		VATAmount:           o.VATAmount,
		TotalBeforeDiscount: o.TotalBeforeDiscount,
		FinalTotal:          o.FinalTotal,
		PaidAmount:          o.PaidAmount,
		RemainingAmount:     o.RemainingAmount,
		PaymentStatus:       o.PaymentStatus,
		Status:              o.Status,
		Version:             o.Version,
	}
	copy(s.Items, o.Items)
	copy(s.Payments, o.Payments)
	if o.DueDate != nil {
		due := *o.DueDate
		s.DueDate = &due
	}
	return s
}

// Restore reverts the order to a previously taken snapshot.
func (o *Order) Restore(s Snapshot) {
	o.Items = make([]LineItem, len(s.Items))
	copy(o.Items, s.Items)
	o.Payments = make([]PaymentEntry, len(s.Payments))
	copy(o.Payments, s.Payments)

	o.Subtotal = s.Subtotal
	o.VATAmount = s.VATAmount
	o.TotalBeforeDiscount = s.TotalBeforeDiscount
	o.FinalTotal = s.FinalTotal

	o.PaidAmount = s.PaidAmount
	o.RemainingAmount = s.RemainingAmount
	o.PaymentStatus = s.PaymentStatus
	o.DueDate = s.DueDate

	o.Status = s.Status
	o.Version = s.Version
}
