package dto

import (
	"machshop/internal/core/entity"
	"machshop/internal/domain/catalogs/customer"
)

// --- Request DTOs ---

// CreateCustomerRequest is the request body for creating a customer.
type CreateCustomerRequest struct {
	Code       string            `json:"code"`
	Name       string            `json:"name" binding:"required"`
	Phone      *string           `json:"phone"`
	Email      *string           `json:"email"`
	NIC        *string           `json:"nic"`
	Address    *string           `json:"address"`
	Comment    *string           `json:"comment"`
	Attributes entity.Attributes `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateCustomerRequest) ToEntity() *customer.Customer {
	c := customer.NewCustomer(r.Code, r.Name)
	c.Phone = r.Phone
	c.Email = r.Email
	c.NIC = r.NIC
	c.Address = r.Address
	c.Comment = r.Comment
	c.Attributes = r.Attributes
	return c
}

// UpdateCustomerRequest is the request body for updating a customer.
type UpdateCustomerRequest struct {
	Code       string            `json:"code"`
	Name       string            `json:"name" binding:"required"`
	Phone      *string           `json:"phone"`
	Email      *string           `json:"email"`
	NIC        *string           `json:"nic"`
	Address    *string           `json:"address"`
	Comment    *string           `json:"comment"`
	Attributes entity.Attributes `json:"attributes"`
	Version    int               `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateCustomerRequest) ApplyTo(c *customer.Customer) {
	c.Code = r.Code
	c.Name = r.Name
	c.Phone = r.Phone
	c.Email = r.Email
	c.NIC = r.NIC
	c.Address = r.Address
	c.Comment = r.Comment
	c.Attributes = r.Attributes
	c.Version = r.Version
}

// --- Response DTOs ---

// CustomerResponse is the response body for a customer.
type CustomerResponse struct {
	ID           string            `json:"id"`
	Code         string            `json:"code"`
	Name         string            `json:"name"`
	Phone        *string           `json:"phone,omitempty"`
	Email        *string           `json:"email,omitempty"`
	NIC          *string           `json:"nic,omitempty"`
	Address      *string           `json:"address,omitempty"`
	Comment      *string           `json:"comment,omitempty"`
	DeletionMark bool              `json:"deletionMark"`
	Version      int               `json:"version"`
	Attributes   entity.Attributes `json:"attributes,omitempty"`
}

// FromCustomer creates response DTO from domain entity.
func FromCustomer(c *customer.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:           c.ID.String(),
		Code:         c.Code,
		Name:         c.Name,
		Phone:        c.Phone,
		Email:        c.Email,
		NIC:          c.NIC,
		Address:      c.Address,
		Comment:      c.Comment,
		DeletionMark: c.DeletionMark,
		Version:      c.Version,
		Attributes:   c.Attributes,
	}
}
