// Package machine provides the Machine catalog.
// Machines are the sellable units of the shop and carry their own stock level.
package machine

import (
	"context"

	"machshop/internal/core/apperror"
	"machshop/internal/core/entity"
	"machshop/internal/core/types"
)

// Category defines the machine category.
type Category string

const (
	CategoryPacking      Category = "Packing Machine"
	CategoryFilling      Category = "Filling Machine"
	CategorySealing      Category = "Sealing Machine"
	CategoryCapping      Category = "Capping Machine"
	CategoryDateCoding   Category = "Date Coding Machine"
	CategoryDehydrator   Category = "Dehydrator Machine"
	CategoryOptionalLine Category = "Optional Line Equipment"
	CategoryMixing       Category = "Mixing Machine"
	CategoryLabelling    Category = "Labelling Machine"
	CategoryGrinding     Category = "Grinding Machine"
	CategoryFood         Category = "Food machine"
	CategoryOther        Category = "Other"
)

// Categories returns the closed list of valid categories.
func Categories() []Category {
	return []Category{
		CategoryPacking,
		CategoryFilling,
		CategorySealing,
		CategoryCapping,
		CategoryDateCoding,
		CategoryDehydrator,
		CategoryOptionalLine,
		CategoryMixing,
		CategoryLabelling,
		CategoryGrinding,
		CategoryFood,
		CategoryOther,
	}
}

// DefaultVATPercentage applies when a machine does not specify its own rate.
var DefaultVATPercentage = types.NewMoneyFromInt(18)

// DefaultWarrantyMonths applies when a machine does not specify a warranty.
const DefaultWarrantyMonths = 12

// Machine represents a sellable machine with its current stock level.
type Machine struct {
	entity.Catalog

	// Category is one of the fixed machine categories
	Category Category `db:"category" json:"category"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`

	// Price is the VAT-inclusive unit price
	Price types.Money `db:"price" json:"price"`

	// Quantity is the units currently in stock
	Quantity int `db:"quantity" json:"quantity"`

	// VATPercentage is the VAT rate included in Price (e.g. 18)
	VATPercentage types.Money `db:"vat_percentage" json:"vatPercentage"`

	// WarrantyMonths is the warranty period in months
	WarrantyMonths int `db:"warranty_months" json:"warrantyMonths"`

	// ImageURL is the machine image URL
	ImageURL *string `db:"image_url" json:"imageUrl,omitempty"`
}

// NewMachine creates a new Machine with required fields and defaults.
func NewMachine(code, name string, category Category) *Machine {
	return &Machine{
		Catalog:        entity.NewCatalog(code, name),
		Category:       category,
		Price:          types.Zero(),
		VATPercentage:  DefaultVATPercentage,
		WarrantyMonths: DefaultWarrantyMonths,
	}
}

// Validate implements entity.Validatable interface.
func (m *Machine) Validate(ctx context.Context) error {
	// Base catalog validation
	if err := m.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !IsValidCategory(m.Category) {
		return apperror.NewValidation("invalid machine category").
			WithDetail("field", "category").
			WithDetail("value", string(m.Category))
	}

	if m.Price.IsNegative() {
		return apperror.NewValidation("price cannot be negative").
			WithDetail("field", "price")
	}

	if m.Quantity < 0 {
		return apperror.NewValidation("quantity cannot be negative").
			WithDetail("field", "quantity")
	}

	if m.VATPercentage.IsNegative() {
		return apperror.NewValidation("VAT percentage cannot be negative").
			WithDetail("field", "vatPercentage")
	}

	if m.WarrantyMonths < 0 {
		return apperror.NewValidation("warranty months cannot be negative").
			WithDetail("field", "warrantyMonths")
	}

	return nil
}

// InStock returns true if at least one unit is available.
func (m *Machine) InStock() bool {
	return m.Quantity > 0
}

// IsValidCategory reports whether c is one of the fixed categories.
func IsValidCategory(c Category) bool {
	for _, valid := range Categories() {
		if c == valid {
			return true
		}
	}
	return false
}
