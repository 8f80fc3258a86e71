package dto

import (
	"machshop/internal/core/entity"
	"machshop/internal/core/types"
	"machshop/internal/domain/catalogs/machine"
)

// --- Request DTOs ---

// CreateMachineRequest is the request body for creating a machine.
type CreateMachineRequest struct {
	Code           string            `json:"code"`
	Name           string            `json:"name" binding:"required"`
	Category       machine.Category  `json:"category" binding:"required"`
	Description    *string           `json:"description"`
	Price          types.Money       `json:"price"`
	Quantity       int               `json:"quantity"`
	VATPercentage  *types.Money      `json:"vatPercentage"`
	WarrantyMonths *int              `json:"warrantyMonths"`
	ImageURL       *string           `json:"imageUrl"`
	Attributes     entity.Attributes `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateMachineRequest) ToEntity() *machine.Machine {
	m := machine.NewMachine(r.Code, r.Name, r.Category)
	m.Description = r.Description
	m.Price = r.Price
	m.Quantity = r.Quantity
	if r.VATPercentage != nil {
		m.VATPercentage = *r.VATPercentage
	}
	if r.WarrantyMonths != nil {
		m.WarrantyMonths = *r.WarrantyMonths
	}
	m.ImageURL = r.ImageURL
	m.Attributes = r.Attributes
	return m
}

// UpdateMachineRequest is the request body for updating a machine.
type UpdateMachineRequest struct {
	Code           string            `json:"code"`
	Name           string            `json:"name" binding:"required"`
	Category       machine.Category  `json:"category" binding:"required"`
	Description    *string           `json:"description"`
	Price          types.Money       `json:"price"`
	Quantity       int               `json:"quantity"`
	VATPercentage  types.Money       `json:"vatPercentage"`
	WarrantyMonths int               `json:"warrantyMonths"`
	ImageURL       *string           `json:"imageUrl"`
	Attributes     entity.Attributes `json:"attributes"`
	Version        int               `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateMachineRequest) ApplyTo(m *machine.Machine) {
	m.Code = r.Code
	m.Name = r.Name
	m.Category = r.Category
	m.Description = r.Description
	m.Price = r.Price
	m.Quantity = r.Quantity
	m.VATPercentage = r.VATPercentage
	m.WarrantyMonths = r.WarrantyMonths
	m.ImageURL = r.ImageURL
	m.Attributes = r.Attributes
	m.Version = r.Version
}

// --- Response DTOs ---

// MachineResponse is the response body for a machine.
type MachineResponse struct {
	ID             string            `json:"id"`
	Code           string            `json:"code"`
	Name           string            `json:"name"`
	Category       machine.Category  `json:"category"`
	Description    *string           `json:"description,omitempty"`
	Price          types.Money       `json:"price"`
	Quantity       int               `json:"quantity"`
	InStock        bool              `json:"inStock"`
	VATPercentage  types.Money       `json:"vatPercentage"`
	WarrantyMonths int               `json:"warrantyMonths"`
	ImageURL       *string           `json:"imageUrl,omitempty"`
	DeletionMark   bool              `json:"deletionMark"`
	Version        int               `json:"version"`
	Attributes     entity.Attributes `json:"attributes,omitempty"`
}

// FromMachine creates response DTO from domain entity.
func FromMachine(m *machine.Machine) *MachineResponse {
	return &MachineResponse{
		ID:             m.ID.String(),
		Code:           m.Code,
		Name:           m.Name,
		Category:       m.Category,
		Description:    m.Description,
		Price:          m.Price,
		Quantity:       m.Quantity,
		InStock:        m.InStock(),
		VATPercentage:  m.VATPercentage,
		WarrantyMonths: m.WarrantyMonths,
		ImageURL:       m.ImageURL,
		DeletionMark:   m.DeletionMark,
		Version:        m.Version,
		Attributes:     m.Attributes,
	}
}

// --- Stock ---

// AdjustStockRequest changes the stock level by a signed delta.
type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// StockResponse reports a machine's stock level.
type StockResponse struct {
	MachineID string `json:"machineId"`
	Quantity  int    `json:"quantity"`
}
