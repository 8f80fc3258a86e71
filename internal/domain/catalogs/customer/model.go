// Package customer provides the Customer catalog.
// Customers are the buyers whose details get snapshotted into orders and refunds.
package customer

import (
	"context"
	"regexp"

	"machshop/internal/core/apperror"
	"machshop/internal/core/entity"
)

// Pre-compiled regex patterns for validation (performance optimization)
var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRE = regexp.MustCompile(`^\+?[\d\s-]{7,15}$`)
	nicRE   = regexp.MustCompile(`^(\d{9}[VvXx]|\d{12})$`)
)

// Customer represents a buyer.
type Customer struct {
	entity.Catalog

	// Phone is the primary contact phone
	Phone *string `db:"phone" json:"phone,omitempty"`

	// Email is the primary contact email
	Email *string `db:"email" json:"email,omitempty"`

	// NIC is the national identity card number
	NIC *string `db:"nic" json:"nic,omitempty"`

	// Address is the postal address
	Address *string `db:"address" json:"address,omitempty"`

	// Comment is a free-form note
	Comment *string `db:"comment" json:"comment,omitempty"`
}

// NewCustomer creates a new Customer with required fields.
func NewCustomer(code, name string) *Customer {
	return &Customer{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (c *Customer) Validate(ctx context.Context) error {
	// Base catalog validation
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if c.Email != nil && *c.Email != "" && !emailRE.MatchString(*c.Email) {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "email")
	}

	if c.Phone != nil && *c.Phone != "" && !phoneRE.MatchString(*c.Phone) {
		return apperror.NewValidation("invalid phone format").
			WithDetail("field", "phone")
	}

	if c.NIC != nil && *c.NIC != "" && !nicRE.MatchString(*c.NIC) {
		return apperror.NewValidation("invalid NIC format").
			WithDetail("field", "nic")
	}

	return nil
}

// Info is the snapshot of customer details embedded into documents.
// Kept as stored at document creation even if the catalog record changes later.
type Info struct {
	Name    string `db:"customer_name" json:"name"`
	Phone   string `db:"customer_phone" json:"phone,omitempty"`
	Email   string `db:"customer_email" json:"email,omitempty"`
	NIC     string `db:"customer_nic" json:"nic,omitempty"`
	Address string `db:"customer_address" json:"address,omitempty"`
}

// Snapshot captures the current customer details for embedding.
func (c *Customer) Snapshot() Info {
	info := Info{Name: c.Name}
	if c.Phone != nil {
		info.Phone = *c.Phone
	}
	if c.Email != nil {
		info.Email = *c.Email
	}
	if c.NIC != nil {
		info.NIC = *c.NIC
	}
	if c.Address != nil {
		info.Address = *c.Address
	}
	return info
}
