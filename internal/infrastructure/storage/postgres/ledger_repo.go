package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/domain"
	"pharmapos/internal/domain/ledger"
)

const stockMovementsTable = "stock_movements"

var stockMovementCols = []string{
	"id", "medicament_id", "movement_type", "quantity",
	"reason", "user_id", "reference_id", "reversal_of", "created_at",
}

// StockMovementRepo implements ledger.Repository. Movements live in
// stock_movements; the cached aggregate lives on the medicament row and
// is only ever changed through ApplyDelta and SetQuantity here.
type StockMovementRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockMovementRepo creates a new stock movement repository.
func NewStockMovementRepo(txManager *TxManager) *StockMovementRepo {
	return &StockMovementRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ ledger.Repository = (*StockMovementRepo)(nil)

// Insert appends a movement and fills its generated ID.
func (r *StockMovementRepo) Insert(ctx context.Context, m *ledger.StockMovement) error {
	q := r.builder.Insert(stockMovementsTable).
		Columns(
			"medicament_id", "movement_type", "quantity",
			"reason", "user_id", "reference_id", "reversal_of", "created_at",
		).
		Values(
			m.MedicamentID, m.MovementType, m.Quantity,
			m.Reason, m.UserID, m.SaleID, m.ReversalOf, m.CreatedAt,
		).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&m.ID); err != nil {
		return MapError(err, "stock movement")
	}

	return nil
}

// GetByID retrieves a movement by ID.
func (r *StockMovementRepo) GetByID(ctx context.Context, id int64) (*ledger.StockMovement, error) {
	q := r.builder.Select(stockMovementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"id": id}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m ledger.StockMovement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock movement", id)
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}

	return &m, nil
}

// ListByMedicament retrieves movements for one medicament, newest first.
func (r *StockMovementRepo) ListByMedicament(ctx context.Context, medicamentID int64, filter domain.ListFilter) (domain.ListResult[*ledger.StockMovement], error) {
	q := r.builder.Select(stockMovementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"medicament_id": medicamentID})

	return r.list(ctx, q, filter)
}

// ListBySale retrieves all movements linked to a sale.
func (r *StockMovementRepo) ListBySale(ctx context.Context, saleID int64) ([]*ledger.StockMovement, error) {
	q := r.builder.Select(stockMovementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"reference_id": saleID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []*ledger.StockMovement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// ListSince retrieves movements created at or after the given time.
func (r *StockMovementRepo) ListSince(ctx context.Context, since time.Time, filter domain.ListFilter) (domain.ListResult[*ledger.StockMovement], error) {
	q := r.builder.Select(stockMovementCols...).
		From(stockMovementsTable).
		Where(squirrel.GtOrEq{"created_at": since})

	return r.list(ctx, q, filter)
}

func (r *StockMovementRepo) list(ctx context.Context, q squirrel.SelectBuilder, filter domain.ListFilter) (domain.ListResult[*ledger.StockMovement], error) {
	filter = filter.Normalize()
	result := domain.ListResult[*ledger.StockMovement]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := parseOrderBy(filter.OrderBy, stockMovementCols, "created_at DESC, id DESC")
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy).
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list movements: %w", err)
	}

	return result, nil
}

// LockBalances locks the stock rows for the given medicaments in
// ascending ID order and returns their current state. Ordered locking
// keeps concurrent multi-line sales deadlock-free.
func (r *StockMovementRepo) LockBalances(ctx context.Context, medicamentIDs []int64) ([]ledger.StockBalance, error) {
	if len(medicamentIDs) == 0 {
		return nil, nil
	}

	q := r.builder.Select("id", "quantity_in_stock", "is_active").
		From(medicamentsTable).
		Where(squirrel.Eq{"id": medicamentIDs}).
		OrderBy("id").
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []ledger.StockBalance
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, MapError(err, "medicament")
	}

	return balances, nil
}

// ApplyDelta atomically shifts the cached quantity of a medicament.
// The conditional update refuses to drive the quantity negative.
func (r *StockMovementRepo) ApplyDelta(ctx context.Context, medicamentID int64, delta int) (int, error) {
	sql := `
		UPDATE medicaments
		SET quantity_in_stock = quantity_in_stock + $2,
		    updated_at = now()
		WHERE id = $1 AND quantity_in_stock + $2 >= 0
		RETURNING quantity_in_stock
	`

	var newQty int
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, medicamentID, delta).Scan(&newQty)
	if err == nil {
		return newQty, nil
	}
	if !pgxscan.NotFound(err) {
		return 0, MapError(err, "medicament")
	}

	// No row updated: either the medicament is gone or the delta would
	// oversell. Report which.
	var current int
	err = querier.QueryRow(ctx,
		"SELECT quantity_in_stock FROM medicaments WHERE id = $1", medicamentID,
	).Scan(&current)
	if pgxscan.NotFound(err) {
		return 0, apperror.NewNotFound("medicament", medicamentID)
	}
	if err != nil {
		return 0, MapError(err, "medicament")
	}

	return 0, apperror.NewInsufficientStock(medicamentID, -delta, current)
}

// SumDeltas replays the ledger for one medicament.
func (r *StockMovementRepo) SumDeltas(ctx context.Context, medicamentID int64) (int, error) {
	sql := `
		SELECT COALESCE(SUM(
			CASE movement_type
				WHEN 'entry' THEN quantity
				WHEN 'exit'  THEN -quantity
				ELSE quantity
			END
		), 0)
		FROM stock_movements
		WHERE medicament_id = $1
	`

	var total int
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, medicamentID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum deltas: %w", err)
	}

	return total, nil
}

// SetQuantity overwrites the cached quantity (rebuild only).
func (r *StockMovementRepo) SetQuantity(ctx context.Context, medicamentID int64, quantity int) error {
	q := r.builder.Update(medicamentsTable).
		Set("quantity_in_stock", quantity).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": medicamentID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return MapError(err, "medicament")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("medicament", medicamentID)
	}

	return nil
}
