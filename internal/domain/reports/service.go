package reports

import (
	"context"
	"fmt"
	"time"
)

// Service provides report generation operations.
type Service struct {
	repo Repository
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetRevenue generates the monthly recognized-revenue report.
func (s *Service) GetRevenue(ctx context.Context, filter RevenueReportFilter) (*RevenueReport, error) {
	// Default to the last 12 months if not specified
	if filter.ToDate.IsZero() {
		filter.ToDate = time.Now().UTC()
	}
	if filter.FromDate.IsZero() {
		filter.FromDate = filter.ToDate.AddDate(-1, 0, 0)
	}

	if filter.FromDate.After(filter.ToDate) {
		return nil, fmt.Errorf("fromDate must be before toDate")
	}

	report, err := s.repo.GetRevenueReport(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get revenue report: %w", err)
	}

	return report, nil
}

// GetMachineSales generates the per-machine sales report.
func (s *Service) GetMachineSales(ctx context.Context, filter MachineSalesReportFilter) (*MachineSalesReport, error) {
	if filter.ToDate.IsZero() {
		filter.ToDate = time.Now().UTC()
	}
	if filter.FromDate.IsZero() {
		filter.FromDate = filter.ToDate.AddDate(-1, 0, 0)
	}

	if filter.FromDate.After(filter.ToDate) {
		return nil, fmt.Errorf("fromDate must be before toDate")
	}

	// Set default pagination
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}

	report, err := s.repo.GetMachineSalesReport(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get machine sales report: %w", err)
	}

	return report, nil
}
