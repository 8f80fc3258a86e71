package reports

import (
	"context"
)

// Repository defines report data access interface.
type Repository interface {
	GetRevenueReport(ctx context.Context, filter RevenueReportFilter) (*RevenueReport, error)
	GetMachineSalesReport(ctx context.Context, filter MachineSalesReportFilter) (*MachineSalesReport, error)
}
