package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"machshop/internal/core/apperror"
	"machshop/internal/core/id"
	"machshop/internal/domain"
	"machshop/internal/domain/refunds"
	"machshop/internal/infrastructure/storage/postgres"
)

const (
	refundsTable      = "doc_refunds"
	refundEventsTable = "doc_refund_events"
)

// RefundRepo implements refunds.Repository.
type RefundRepo struct {
	*BaseDocumentRepo[*refunds.Refund]
}

// NewRefundRepo creates a new refund repository.
func NewRefundRepo(txManager *postgres.TxManager) *RefundRepo {
	return &RefundRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			refundsTable,
			postgres.ExtractDBColumns[refunds.Refund](),
			func() *refunds.Refund { return &refunds.Refund{} },
		),
	}
}

// Update persists the refund and keeps the in-memory version in step
// with the row.
func (r *RefundRepo) Update(ctx context.Context, ref *refunds.Refund) error {
	if err := r.BaseDocumentRepo.Update(ctx, ref); err != nil {
		return err
	}
	ref.SetVersion(ref.Version + 1)
	return nil
}

// GetByOrder retrieves the refund document attached to an order.
// At most one exists per order.
func (r *RefundRepo) GetByOrder(ctx context.Context, orderID id.ID) (*refunds.Refund, error) {
	entity := &refunds.Refund{}
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"order_id": orderID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.Querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("refund for order", orderID.String())
		}
		return nil, fmt.Errorf("get by order: %w", err)
	}

	return entity, nil
}

// GetEvents retrieves return events in occurrence order.
func (r *RefundRepo) GetEvents(ctx context.Context, refundID id.ID) ([]refunds.ReturnEvent, error) {
	q := r.Builder().
		Select("event_id", "kind", "machine_id", "item_name", "quantity", "amount", "occurred_at").
		From(refundEventsTable).
		Where(squirrel.Eq{"refund_id": refundID}).
		OrderBy("occurred_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var events []refunds.ReturnEvent
	if err := pgxscan.Select(ctx, r.Querier(ctx), &events, sql, args...); err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}

	return events, nil
}

// SaveEvents replaces the refund's event list.
func (r *RefundRepo) SaveEvents(ctx context.Context, refundID id.ID, events []refunds.ReturnEvent) error {
	deleteSQL := "DELETE FROM " + refundEventsTable + " WHERE refund_id = $1"
	if _, err := r.Querier(ctx).Exec(ctx, deleteSQL, refundID); err != nil {
		return fmt.Errorf("delete existing events: %w", err)
	}

	if len(events) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(refundEventsTable).
		Columns("event_id", "refund_id", "kind", "machine_id", "item_name", "quantity", "amount", "occurred_at")

	for _, e := range events {
		q = q.Values(e.EventID, refundID, e.Kind, e.MachineID, e.ItemName, e.Quantity, e.Amount, e.OccurredAt)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert events: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert events: %w", err)
	}

	return nil
}

// List retrieves refunds with refund-specific filtering.
func (r *RefundRepo) List(ctx context.Context, filter refunds.ListFilter) (domain.ListResult[*refunds.Refund], error) {
	result := domain.ListResult[*refunds.Refund]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.OrderID != nil {
		q = q.Where(squirrel.Eq{"order_id": *filter.OrderID})
	}

	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"refund_status": *filter.Status})
	}

	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}

	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": searchPattern},
			squirrel.ILike{"order_number": searchPattern},
			squirrel.ILike{"customer_name": searchPattern},
		})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.Querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select: %w", err)
	}

	return result, nil
}

// GetStats aggregates refund figures over a period. Amounts only count
// refunds whose status pays out.
func (r *RefundRepo) GetStats(ctx context.Context, from, to time.Time) (refunds.Stats, error) {
	sql := `
		SELECT
			COUNT(*) AS total_count,
			COUNT(*) FILTER (WHERE refund_status = 'pending') AS pending_count,
			COUNT(*) FILTER (WHERE refund_status IN ('approved', 'completed', 'refunded')) AS paid_out_count,
			COALESCE(SUM(refund_amount) FILTER (WHERE refund_status IN ('approved', 'completed', 'refunded')), 0) AS total_amount
		FROM ` + refundsTable + `
		WHERE deletion_mark = false AND date >= $1 AND date <= $2
	`

	var stats refunds.Stats
	if err := pgxscan.Get(ctx, r.Querier(ctx), &stats, sql, from, to); err != nil {
		return stats, fmt.Errorf("refund stats: %w", err)
	}

	return stats, nil
}
