package dto

import (
	"time"

	"machshop/internal/domain/reports"
)

// --- Revenue Report ---

// RevenueReportQuery binds query params for the revenue report.
type RevenueReportQuery struct {
	FromDate *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate   *time.Time `form:"toDate" time_format:"2006-01-02"`
}

// ToFilter converts query params to the domain filter.
func (q *RevenueReportQuery) ToFilter() reports.RevenueReportFilter {
	f := reports.RevenueReportFilter{}
	if q.FromDate != nil {
		f.FromDate = *q.FromDate
	}
	if q.ToDate != nil {
		f.ToDate = *q.ToDate
	}
	return f
}

// --- Machine Sales Report ---

// MachineSalesReportQuery binds query params for the machine sales report.
type MachineSalesReportQuery struct {
	FromDate *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate   *time.Time `form:"toDate" time_format:"2006-01-02"`
	Category *string    `form:"category"`
	Limit    int        `form:"limit"`
	Offset   int        `form:"offset"`
}

// ToFilter converts query params to the domain filter.
func (q *MachineSalesReportQuery) ToFilter() reports.MachineSalesReportFilter {
	f := reports.MachineSalesReportFilter{
		Category: q.Category,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.FromDate != nil {
		f.FromDate = *q.FromDate
	}
	if q.ToDate != nil {
		f.ToDate = *q.ToDate
	}
	return f
}
