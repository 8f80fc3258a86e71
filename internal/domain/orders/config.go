package orders

import "machshop/pkg/numerator"

const (
	// NumeratorStrategy defines the numbering strategy for orders.
	// Order numbers appear on invoices, so gaps are not acceptable and the
	// strict strategy is used.
	NumeratorStrategy = numerator.StrategyStrict
)
