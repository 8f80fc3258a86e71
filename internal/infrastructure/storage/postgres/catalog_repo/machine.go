package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"machshop/internal/core/apperror"
	"machshop/internal/core/id"
	"machshop/internal/domain"
	"machshop/internal/domain/catalogs/machine"
	"machshop/internal/infrastructure/storage/postgres"
)

const machineTable = "cat_machines"

// MachineRepo implements machine.Repository.
type MachineRepo struct {
	*BaseCatalogRepo[*machine.Machine]
}

// NewMachineRepo creates a new machine repository.
func NewMachineRepo(txManager *postgres.TxManager) *MachineRepo {
	return &MachineRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			machineTable,
			postgres.ExtractDBColumns[machine.Machine](),
			func() *machine.Machine { return &machine.Machine{} },
		),
	}
}

// AdjustQuantity applies a stock delta atomically and returns the new level.
// The guard in the WHERE clause keeps stock from ever dipping below zero.
func (r *MachineRepo) AdjustQuantity(ctx context.Context, entityID id.ID, delta int) (int, error) {
	sql := `
		UPDATE ` + machineTable + `
		SET quantity = quantity + $1, updated_at = now()
		WHERE id = $2 AND quantity + $1 >= 0
		RETURNING quantity
	`

	var newQuantity int
	err := r.Querier(ctx).QueryRow(ctx, sql, delta, entityID).Scan(&newQuantity)
	if err == nil {
		return newQuantity, nil
	}
	if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("adjust quantity: %w", err)
	}

	// No row updated: either the machine is missing or the delta would
	// overdraw the stock. Tell the caller which.
	m, getErr := r.GetByID(ctx, entityID)
	if getErr != nil {
		return 0, getErr
	}
	return 0, apperror.NewInsufficientStock(entityID.String(), -delta, m.Quantity)
}

// FindByCategory retrieves machines within one category.
func (r *MachineRepo) FindByCategory(ctx context.Context, category machine.Category, filter domain.ListFilter) (domain.ListResult[*machine.Machine], error) {
	return r.findFiltered(ctx, filter, squirrel.Eq{"category": category})
}

// FindLowStock retrieves machines with stock at or below the threshold.
func (r *MachineRepo) FindLowStock(ctx context.Context, threshold int, filter domain.ListFilter) (domain.ListResult[*machine.Machine], error) {
	return r.findFiltered(ctx, filter, squirrel.LtOrEq{"quantity": threshold})
}

func (r *MachineRepo) findFiltered(ctx context.Context, filter domain.ListFilter, cond squirrel.Sqlizer) (domain.ListResult[*machine.Machine], error) {
	result := domain.ListResult[*machine.Machine]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx).
		Where(cond).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("name ASC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, _ := q.ToSql()

	var items []*machine.Machine
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return result, fmt.Errorf("find machines: %w", err)
	}
	result.Items = items

	countQ := r.Builder().
		Select("COUNT(*)").
		From(machineTable).
		Where(cond).
		Where(squirrel.Eq{"deletion_mark": false})

	countSQL, countArgs, _ := countQ.ToSql()
	if err := r.Querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count machines: %w", err)
	}

	return result, nil
}
