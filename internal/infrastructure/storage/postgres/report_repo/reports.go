// Package report_repo provides PostgreSQL implementations for report repositories.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"machshop/internal/core/types"
	"machshop/internal/domain/reports"
	"machshop/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetRevenueReport generates the monthly recognized-revenue report.
// Gross revenue comes from non-cancelled order totals; refunds reduce the
// month they occurred in, and only when their status pays out.
func (r *ReportRepo) GetRevenueReport(ctx context.Context, filter reports.RevenueReportFilter) (*reports.RevenueReport, error) {
	query := `
		WITH order_months AS (
			SELECT
				date_trunc('month', date) AS month,
				COUNT(*) AS order_count,
				COALESCE(SUM(final_total), 0) AS gross_revenue
			FROM doc_orders
			WHERE deletion_mark = false
			  AND order_status <> 'Cancelled'
			  AND date >= $1 AND date <= $2
			GROUP BY 1
		),
		refund_months AS (
			SELECT
				date_trunc('month', date) AS month,
				COALESCE(SUM(refund_amount), 0) AS refund_total
			FROM doc_refunds
			WHERE deletion_mark = false
			  AND refund_status IN ('approved', 'completed', 'refunded')
			  AND date >= $1 AND date <= $2
			GROUP BY 1
		)
		SELECT
			COALESCE(o.month, rf.month) AS month,
			COALESCE(o.order_count, 0) AS order_count,
			COALESCE(o.gross_revenue, 0) AS gross_revenue,
			COALESCE(rf.refund_total, 0) AS refund_total,
			COALESCE(o.gross_revenue, 0) - COALESCE(rf.refund_total, 0) AS net_revenue
		FROM order_months o
		FULL OUTER JOIN refund_months rf ON o.month = rf.month
		ORDER BY month
	`

	var rows []reports.RevenueRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, query, filter.FromDate, filter.ToDate); err != nil {
		return nil, fmt.Errorf("revenue report: %w", err)
	}

	report := &reports.RevenueReport{
		FromDate:     filter.FromDate,
		ToDate:       filter.ToDate,
		Rows:         rows,
		TotalGross:   types.Zero(),
		TotalRefunds: types.Zero(),
		TotalNet:     types.Zero(),
		GeneratedAt:  time.Now().UTC(),
	}

	for _, row := range rows {
		report.TotalGross = report.TotalGross.Add(row.GrossRevenue)
		report.TotalRefunds = report.TotalRefunds.Add(row.RefundTotal)
		report.TotalNet = report.TotalNet.Add(row.NetRevenue)
	}

	return report, nil
}

// GetMachineSalesReport aggregates per-machine sales over a period.
// Units and revenue are net of returned quantities.
func (r *ReportRepo) GetMachineSalesReport(ctx context.Context, filter reports.MachineSalesReportFilter) (*reports.MachineSalesReport, error) {
	query := `
		SELECT
			i.machine_id,
			m.code,
			m.name,
			i.category,
			COALESCE(SUM(i.quantity), 0) AS units_sold,
			COALESCE(SUM(i.returned_quantity), 0) AS units_returned,
			COALESCE(SUM(i.quantity - i.returned_quantity), 0) AS net_units,
			COALESCE(SUM(i.unit_price * (i.quantity - i.returned_quantity)), 0) AS revenue
		FROM doc_order_items i
		JOIN doc_orders o ON i.order_id = o.id
		JOIN cat_machines m ON i.machine_id = m.id
		WHERE o.deletion_mark = false
		  AND o.order_status <> 'Cancelled'
		  AND o.date >= $1 AND o.date <= $2
	`
	args := []any{filter.FromDate, filter.ToDate}

	if filter.Category != nil {
		query += fmt.Sprintf(" AND i.category = $%d", len(args)+1)
		args = append(args, *filter.Category)
	}

	query += `
		GROUP BY i.machine_id, m.code, m.name, i.category
		ORDER BY net_units DESC, m.name
	`

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, filter.Offset)
	}

	var rows []reports.MachineSalesRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("machine sales report: %w", err)
	}

	return &reports.MachineSalesReport{
		FromDate:    filter.FromDate,
		ToDate:      filter.ToDate,
		Rows:        rows,
		TotalCount:  int64(len(rows)),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
