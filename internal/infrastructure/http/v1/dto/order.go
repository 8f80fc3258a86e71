package dto

import (
	"time"

	"machshop/internal/core/apperror"
	"machshop/internal/core/id"
	"machshop/internal/core/types"
	"machshop/internal/domain/orders"
)

// --- Request DTOs ---

// OrderItemRequest is one requested line on a new order.
type OrderItemRequest struct {
	MachineID string `json:"machineId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Note      string `json:"note"`
}

// ExtraChargeRequest is one additional charge.
type ExtraChargeRequest struct {
	Description string      `json:"description" binding:"required"`
	Amount      types.Money `json:"amount"`
}

// CreateOrderRequest is the request body for registering a sale.
type CreateOrderRequest struct {
	CustomerID        string               `json:"customerId" binding:"required"`
	Items             []OrderItemRequest   `json:"items" binding:"required,min=1"`
	Extras            []ExtraChargeRequest `json:"extras"`
	DiscountAmount    types.Money          `json:"discountAmount"`
	PaymentPeriodDays int                  `json:"paymentPeriodDays"`
	InitialPayment    types.Money          `json:"initialPayment"`
	Notes             string               `json:"notes"`
	ProcessedBy       string               `json:"processedBy"`
	Date              *time.Time           `json:"date"`
}

// ToInput converts the request to the service input, parsing IDs.
func (r *CreateOrderRequest) ToInput() (orders.CreateInput, error) {
	customerID, err := id.Parse(r.CustomerID)
	if err != nil {
		return orders.CreateInput{}, apperror.NewValidation("invalid customerId format")
	}

	input := orders.CreateInput{
		CustomerID:        customerID,
		DiscountAmount:    r.DiscountAmount,
		PaymentPeriodDays: r.PaymentPeriodDays,
		InitialPayment:    r.InitialPayment,
		Notes:             r.Notes,
		ProcessedBy:       r.ProcessedBy,
	}
	if r.Date != nil {
		input.Date = *r.Date
	}

	for _, item := range r.Items {
		machineID, err := id.Parse(item.MachineID)
		if err != nil {
			return orders.CreateInput{}, apperror.NewValidation("invalid machineId format").
				WithDetail("machineId", item.MachineID)
		}
		input.Items = append(input.Items, orders.CreateItemInput{
			MachineID: machineID,
			Quantity:  item.Quantity,
			Note:      item.Note,
		})
	}

	for _, extra := range r.Extras {
		input.Extras = append(input.Extras, orders.ExtraInput{
			Description: extra.Description,
			Amount:      extra.Amount,
		})
	}

	return input, nil
}

// UpdateOrderRequest edits order-level fields. Omitted fields keep their value.
type UpdateOrderRequest struct {
	DiscountAmount    *types.Money          `json:"discountAmount"`
	Extras            *[]ExtraChargeRequest `json:"extras"`
	Notes             *string               `json:"notes"`
	PaymentPeriodDays *int                  `json:"paymentPeriodDays"`
}

// ToInput converts the request to the service input.
func (r *UpdateOrderRequest) ToInput() orders.UpdateInput {
	input := orders.UpdateInput{
		DiscountAmount:    r.DiscountAmount,
		Notes:             r.Notes,
		PaymentPeriodDays: r.PaymentPeriodDays,
	}
	if r.Extras != nil {
		extras := make([]orders.ExtraInput, 0, len(*r.Extras))
		for _, extra := range *r.Extras {
			extras = append(extras, orders.ExtraInput{
				Description: extra.Description,
				Amount:      extra.Amount,
			})
		}
		input.Extras = &extras
	}
	return input
}

// ReturnItemRequest returns units of one machine on the order.
type ReturnItemRequest struct {
	MachineID      string `json:"machineId" binding:"required"`
	ReturnQuantity int    `json:"returnQuantity" binding:"required,min=1"`
}

// ApplyPaymentRequest records a payment against the order.
type ApplyPaymentRequest struct {
	Amount    types.Money `json:"amount" binding:"required"`
	UpdatedBy string      `json:"updatedBy"`
}

// UpdateOrderStatusRequest changes the order workflow status.
type UpdateOrderStatusRequest struct {
	Status orders.Status `json:"status" binding:"required"`
}

// --- Response DTOs ---

// OrderLineResponse is one order line with frozen pricing and return state.
type OrderLineResponse struct {
	LineID           string           `json:"lineId"`
	LineNo           int              `json:"lineNo"`
	MachineID        string           `json:"machineId"`
	ItemCode         string           `json:"itemCode"`
	Name             string           `json:"name"`
	Category         string           `json:"category"`
	Quantity         int              `json:"quantity"`
	UnitPrice        types.Money      `json:"unitPrice"`
	VATPercentage    types.Money      `json:"vatPercentage"`
	WarrantyMonths   int              `json:"warrantyMonths"`
	BasePerUnit      types.Money      `json:"basePerUnit"`
	VATPerUnit       types.Money      `json:"vatPerUnit"`
	Subtotal         types.Money      `json:"subtotal"`
	VATAmount        types.Money      `json:"vatAmount"`
	TotalWithVAT     types.Money      `json:"totalWithVat"`
	ReturnedQuantity int              `json:"returnedQuantity"`
	Returned         bool             `json:"returned"`
	ReturnedAt       *time.Time       `json:"returnedAt,omitempty"`
	State            orders.LineState `json:"state"`
	Note             string           `json:"note,omitempty"`
}

// ExtraChargeResponse is one additional charge.
type ExtraChargeResponse struct {
	LineID      string      `json:"lineId"`
	Description string      `json:"description"`
	Amount      types.Money `json:"amount"`
}

// PaymentEntryResponse is one ledger entry.
type PaymentEntryResponse struct {
	EntryID   string      `json:"entryId"`
	Amount    types.Money `json:"amount"`
	Date      time.Time   `json:"date"`
	UpdatedBy string      `json:"updatedBy,omitempty"`
}

// CustomerInfoResponse is the customer snapshot stored on the document.
type CustomerInfoResponse struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	NIC     string `json:"nic,omitempty"`
	Address string `json:"address,omitempty"`
}

// OrderResponse is the full order with table parts.
type OrderResponse struct {
	DocumentResponse

	CustomerID string               `json:"customerId"`
	Customer   CustomerInfoResponse `json:"customer"`

	Items    []OrderLineResponse    `json:"items"`
	Extras   []ExtraChargeResponse  `json:"extras"`
	Payments []PaymentEntryResponse `json:"paymentHistory"`

	Subtotal            types.Money `json:"subtotal"`
	VATAmount           types.Money `json:"vatAmount"`
	TotalBeforeDiscount types.Money `json:"totalBeforeDiscount"`
	DiscountAmount      types.Money `json:"discountAmount"`
	ExtrasTotal         types.Money `json:"extrasTotal"`
	FinalTotal          types.Money `json:"finalTotal"`

	PaidAmount        types.Money          `json:"paidAmount"`
	RemainingAmount   types.Money          `json:"remainingAmount"`
	PaymentStatus     orders.PaymentStatus `json:"paymentStatus"`
	DueDate           *time.Time           `json:"dueDate,omitempty"`
	PaymentPeriodDays int                  `json:"paymentPeriodDays"`

	Status      orders.Status `json:"orderStatus"`
	ProcessedBy string        `json:"processedBy,omitempty"`
}

// FromOrder creates response DTO from domain entity.
func FromOrder(o *orders.Order) *OrderResponse {
	resp := &OrderResponse{
		DocumentResponse: FromDocument(o.Document),
		CustomerID:       o.CustomerID.String(),
		Customer: CustomerInfoResponse{
			Name:    o.Info.Name,
			Phone:   o.Info.Phone,
			Email:   o.Info.Email,
			NIC:     o.Info.NIC,
			Address: o.Info.Address,
		},
		Items:               make([]OrderLineResponse, 0, len(o.Items)),
		Extras:              make([]ExtraChargeResponse, 0, len(o.Extras)),
		Payments:            make([]PaymentEntryResponse, 0, len(o.Payments)),
		Subtotal:            o.Subtotal,
		VATAmount:           o.VATAmount,
		TotalBeforeDiscount: o.TotalBeforeDiscount,
		DiscountAmount:      o.DiscountAmount,
		ExtrasTotal:         o.ExtrasTotal,
		FinalTotal:          o.FinalTotal,
		PaidAmount:          o.PaidAmount,
		RemainingAmount:     o.RemainingAmount,
		PaymentStatus:       o.PaymentStatus,
		DueDate:             o.DueDate,
		PaymentPeriodDays:   o.PaymentPeriodDays,
		Status:              o.Status,
		ProcessedBy:         o.ProcessedBy,
	}

	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderLineResponse{
			LineID:           item.LineID.String(),
			LineNo:           item.LineNo,
			MachineID:        item.MachineID.String(),
			ItemCode:         item.ItemCode,
			Name:             item.Name,
			Category:         item.Category,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			VATPercentage:    item.VATPercentage,
			WarrantyMonths:   item.WarrantyMonths,
			BasePerUnit:      item.BasePerUnit,
			VATPerUnit:       item.VATPerUnit,
			Subtotal:         item.Subtotal,
			VATAmount:        item.VATAmount,
			TotalWithVAT:     item.TotalWithVAT,
			ReturnedQuantity: item.ReturnedQuantity,
			Returned:         item.Returned,
			ReturnedAt:       item.ReturnedAt,
			State:            item.State(),
			Note:             item.Note,
		})
	}

	for _, extra := range o.Extras {
		resp.Extras = append(resp.Extras, ExtraChargeResponse{
			LineID:      extra.LineID.String(),
			Description: extra.Description,
			Amount:      extra.Amount,
		})
	}

	for _, entry := range o.Payments {
		resp.Payments = append(resp.Payments, PaymentEntryResponse{
			EntryID:   entry.EntryID.String(),
			Amount:    entry.Amount,
			Date:      entry.Date,
			UpdatedBy: entry.UpdatedBy,
		})
	}

	return resp
}

// OrderListItemResponse is the compact order shape for list endpoints.
type OrderListItemResponse struct {
	DocumentResponse

	CustomerID      string               `json:"customerId"`
	CustomerName    string               `json:"customerName"`
	FinalTotal      types.Money          `json:"finalTotal"`
	PaidAmount      types.Money          `json:"paidAmount"`
	RemainingAmount types.Money          `json:"remainingAmount"`
	PaymentStatus   orders.PaymentStatus `json:"paymentStatus"`
	DueDate         *time.Time           `json:"dueDate,omitempty"`
	Status          orders.Status        `json:"orderStatus"`
}

// FromOrderListItem creates the compact list DTO.
func FromOrderListItem(o *orders.Order) *OrderListItemResponse {
	return &OrderListItemResponse{
		DocumentResponse: FromDocument(o.Document),
		CustomerID:       o.CustomerID.String(),
		CustomerName:     o.Info.Name,
		FinalTotal:       o.FinalTotal,
		PaidAmount:       o.PaidAmount,
		RemainingAmount:  o.RemainingAmount,
		PaymentStatus:    o.PaymentStatus,
		DueDate:          o.DueDate,
		Status:           o.Status,
	}
}
