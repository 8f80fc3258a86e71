package dto

import (
	"time"

	"machshop/internal/core/id"
	"machshop/internal/core/types"
	"machshop/internal/domain/refunds"
)

// --- Request DTOs ---

// UpdateRefundStatusRequest moves a refund through its approval workflow.
type UpdateRefundStatusRequest struct {
	Status      refunds.RefundStatus `json:"status" binding:"required"`
	ProcessedBy string               `json:"processedBy"`
}

// --- Response DTOs ---

// ReturnEventResponse is one accumulated return or overpayment event.
type ReturnEventResponse struct {
	EventID    string            `json:"eventId"`
	Kind       refunds.EventKind `json:"kind"`
	MachineID  string            `json:"machineId,omitempty"`
	ItemName   string            `json:"itemName,omitempty"`
	Quantity   int               `json:"quantity,omitempty"`
	Amount     types.Money       `json:"amount"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// RefundResponse is the refund document with its events.
type RefundResponse struct {
	DocumentResponse

	OrderID     string               `json:"orderId"`
	OrderNumber string               `json:"orderNumber"`
	CustomerID  string               `json:"customerId"`
	Customer    CustomerInfoResponse `json:"customer"`

	OriginalAmount types.Money          `json:"originalAmount"`
	RefundAmount   types.Money          `json:"refundAmount"`
	Type           refunds.RefundType   `json:"refundType"`
	Status         refunds.RefundStatus `json:"refundStatus"`
	Reason         string               `json:"reason,omitempty"`
	ProcessedBy    string               `json:"processedBy,omitempty"`

	Events []ReturnEventResponse `json:"events"`
}

// FromRefund creates response DTO from domain entity.
func FromRefund(r *refunds.Refund) *RefundResponse {
	resp := &RefundResponse{
		DocumentResponse: FromDocument(r.Document),
		OrderID:          r.OrderID.String(),
		OrderNumber:      r.OrderNumber,
		CustomerID:       r.CustomerID.String(),
		Customer: CustomerInfoResponse{
			Name:    r.Info.Name,
			Phone:   r.Info.Phone,
			Email:   r.Info.Email,
			NIC:     r.Info.NIC,
			Address: r.Info.Address,
		},
		OriginalAmount: r.OriginalAmount,
		RefundAmount:   r.RefundAmount,
		Type:           r.Type(),
		Status:         r.Status,
		Reason:         r.Reason,
		ProcessedBy:    r.ProcessedBy,
		Events:         make([]ReturnEventResponse, 0, len(r.Events)),
	}

	for _, ev := range r.Events {
		machineID := ""
		if !id.IsNil(ev.MachineID) {
			machineID = ev.MachineID.String()
		}
		resp.Events = append(resp.Events, ReturnEventResponse{
			EventID:    ev.EventID.String(),
			Kind:       ev.Kind,
			MachineID:  machineID,
			ItemName:   ev.ItemName,
			Quantity:   ev.Quantity,
			Amount:     ev.Amount,
			OccurredAt: ev.OccurredAt,
		})
	}

	return resp
}
