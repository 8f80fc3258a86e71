package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"machshop/internal/core/id"
	"machshop/internal/domain"
	"machshop/internal/domain/orders"
	"machshop/internal/infrastructure/storage/postgres"
)

const (
	ordersTable        = "doc_orders"
	orderItemsTable    = "doc_order_items"
	orderExtrasTable   = "doc_order_extras"
	orderPaymentsTable = "doc_order_payments"
)

var orderItemCols = []string{
	"line_id", "line_no", "machine_id", "item_code", "name", "category",
	"quantity", "unit_price", "vat_percentage", "warranty_months",
	"base_per_unit", "vat_per_unit",
	"subtotal", "vat_amount", "total_with_vat",
	"returned_quantity", "returned", "returned_at", "note",
}

// OrderRepo implements orders.Repository.
type OrderRepo struct {
	*BaseDocumentRepo[*orders.Order]
	batch *postgres.BatchInserter
	exec  *postgres.BatchExecutor
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txManager *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			ordersTable,
			postgres.ExtractDBColumns[orders.Order](),
			func() *orders.Order { return &orders.Order{} },
		),
		batch: postgres.NewBatchInserter(txManager),
		exec:  postgres.NewBatchExecutor(txManager),
	}
}

// Update persists the order header and keeps the in-memory version in
// step with the row, so a later compensating update still matches.
func (r *OrderRepo) Update(ctx context.Context, o *orders.Order) error {
	if err := r.BaseDocumentRepo.Update(ctx, o); err != nil {
		return err
	}
	o.SetVersion(o.Version + 1)
	return nil
}

// GetItems retrieves order line items ordered by line number.
func (r *OrderRepo) GetItems(ctx context.Context, orderID id.ID) ([]orders.LineItem, error) {
	q := r.Builder().
		Select(orderItemCols...).
		From(orderItemsTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []orders.LineItem
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

// SaveItems replaces the order's line items. Bulk load goes through the
// COPY protocol, so this must run inside a transaction.
func (r *OrderRepo) SaveItems(ctx context.Context, orderID id.ID, items []orders.LineItem) error {
	deleteSQL := "DELETE FROM " + orderItemsTable + " WHERE order_id = $1"
	if _, err := r.Querier(ctx).Exec(ctx, deleteSQL, orderID); err != nil {
		return fmt.Errorf("delete existing items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	columns := append([]string{"order_id"}, orderItemCols...)
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{
			orderID,
			it.LineID, it.LineNo, it.MachineID, it.ItemCode, it.Name, it.Category,
			it.Quantity, it.UnitPrice, it.VATPercentage, it.WarrantyMonths,
			it.BasePerUnit, it.VATPerUnit,
			it.Subtotal, it.VATAmount, it.TotalWithVAT,
			it.ReturnedQuantity, it.Returned, it.ReturnedAt, it.Note,
		})
	}

	if _, err := r.batch.CopyFromSlice(ctx, orderItemsTable, columns, rows); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}

	return nil
}

// GetExtras retrieves extra charges for an order.
func (r *OrderRepo) GetExtras(ctx context.Context, orderID id.ID) ([]orders.ExtraCharge, error) {
	q := r.Builder().
		Select("line_id", "description", "amount").
		From(orderExtrasTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("description")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var extras []orders.ExtraCharge
	if err := pgxscan.Select(ctx, r.Querier(ctx), &extras, sql, args...); err != nil {
		return nil, fmt.Errorf("get extras: %w", err)
	}

	return extras, nil
}

// SaveExtras replaces the order's extra charges. Delete and insert go
// out as a single batch round-trip inside the surrounding transaction.
func (r *OrderRepo) SaveExtras(ctx context.Context, orderID id.ID, extras []orders.ExtraCharge) error {
	queries := []postgres.BatchQuery{{
		SQL:  "DELETE FROM " + orderExtrasTable + " WHERE order_id = $1",
		Args: []any{orderID},
	}}

	if len(extras) > 0 {
		q := r.Builder().
			Insert(orderExtrasTable).
			Columns("line_id", "order_id", "description", "amount")

		for _, e := range extras {
			q = q.Values(e.LineID, orderID, e.Description, e.Amount)
		}

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert extras: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}

	if err := r.exec.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("save extras: %w", err)
	}

	return nil
}

// GetPayments retrieves the payment ledger, oldest first.
func (r *OrderRepo) GetPayments(ctx context.Context, orderID id.ID) ([]orders.PaymentEntry, error) {
	q := r.Builder().
		Select("entry_id", "amount", "date", "updated_by").
		From(orderPaymentsTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("date ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []orders.PaymentEntry
	if err := pgxscan.Select(ctx, r.Querier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("get payments: %w", err)
	}

	return entries, nil
}

// AppendPayment inserts a single ledger entry. The ledger is append-only.
func (r *OrderRepo) AppendPayment(ctx context.Context, orderID id.ID, entry orders.PaymentEntry) error {
	q := r.Builder().
		Insert(orderPaymentsTable).
		Columns("entry_id", "order_id", "amount", "date", "updated_by").
		Values(entry.EntryID, orderID, entry.Amount, entry.Date, entry.UpdatedBy)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert payment: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// List retrieves orders with order-specific filtering.
func (r *OrderRepo) List(ctx context.Context, filter orders.ListFilter) (domain.ListResult[*orders.Order], error) {
	result := domain.ListResult[*orders.Order]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"order_status": *filter.Status})
	}

	if filter.PaymentStatus != nil {
		q = q.Where(squirrel.Eq{"payment_status": *filter.PaymentStatus})
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

// GetStats aggregates order counts and money figures over a period.
func (r *OrderRepo) GetStats(ctx context.Context, from, to time.Time) (orders.Stats, error) {
	sql := `
		SELECT
			COUNT(*) AS total_count,
			COUNT(*) FILTER (WHERE order_status = 'Completed') AS completed_count,
			COUNT(*) FILTER (WHERE order_status = 'Cancelled') AS cancelled_count,
			COALESCE(SUM(final_total) FILTER (WHERE order_status <> 'Cancelled'), 0) AS total_revenue,
			COALESCE(SUM(remaining_amount) FILTER (WHERE order_status <> 'Cancelled'), 0) AS total_owed
		FROM ` + ordersTable + `
		WHERE deletion_mark = false AND date >= $1 AND date <= $2
	`

	var stats orders.Stats
	if err := pgxscan.Get(ctx, r.Querier(ctx), &stats, sql, from, to); err != nil {
		return stats, fmt.Errorf("order stats: %w", err)
	}

	return stats, nil
}
