// Package reports provides financial report generation.
package reports

import (
	"time"

	"machshop/internal/core/id"
	"machshop/internal/core/types"
)

// --- Revenue Report ---

// RevenueReportFilter defines the period for the revenue report.
type RevenueReportFilter struct {
	// FromDate / ToDate bound the report period (defaults: last 12 months)
	FromDate time.Time
	ToDate   time.Time
}

// RevenueRow is one monthly bucket.
//
// GrossRevenue sums final totals of non-cancelled orders dated in the month.
// RefundTotal only counts refunds that actually pay out (approved, completed
// or refunded); pending refunds are informational and do not reduce revenue.
type RevenueRow struct {
	Month        time.Time   `db:"month" json:"month"`
	OrderCount   int64       `db:"order_count" json:"orderCount"`
	GrossRevenue types.Money `db:"gross_revenue" json:"grossRevenue"`
	RefundTotal  types.Money `db:"refund_total" json:"refundTotal"`
	NetRevenue   types.Money `db:"net_revenue" json:"netRevenue"`
}

// RevenueReport is the recognized-revenue report over monthly buckets.
type RevenueReport struct {
	FromDate time.Time `json:"fromDate"`
	ToDate   time.Time `json:"toDate"`

	Rows []RevenueRow `json:"rows"`

	TotalGross   types.Money `json:"totalGross"`
	TotalRefunds types.Money `json:"totalRefunds"`
	TotalNet     types.Money `json:"totalNet"`

	GeneratedAt time.Time `json:"generatedAt"`
}

// --- Machine Sales Report ---

// MachineSalesReportFilter defines filters for the machine sales report.
type MachineSalesReportFilter struct {
	FromDate time.Time
	ToDate   time.Time

	// Category narrows the report to one machine category
	Category *string

	// Pagination
	Limit  int
	Offset int
}

// MachineSalesRow aggregates one machine's sales over the period.
// NetUnits is units sold minus units returned.
type MachineSalesRow struct {
	MachineID     id.ID       `db:"machine_id" json:"machineId"`
	Code          string      `db:"code" json:"code"`
	Name          string      `db:"name" json:"name"`
	Category      string      `db:"category" json:"category"`
	UnitsSold     int64       `db:"units_sold" json:"unitsSold"`
	UnitsReturned int64       `db:"units_returned" json:"unitsReturned"`
	NetUnits      int64       `db:"net_units" json:"netUnits"`
	Revenue       types.Money `db:"revenue" json:"revenue"`
}

// MachineSalesReport lists per-machine sales aggregates.
type MachineSalesReport struct {
	FromDate time.Time `json:"fromDate"`
	ToDate   time.Time `json:"toDate"`

	Rows       []MachineSalesRow `json:"rows"`
	TotalCount int64             `json:"totalCount"`

	GeneratedAt time.Time `json:"generatedAt"`
}
