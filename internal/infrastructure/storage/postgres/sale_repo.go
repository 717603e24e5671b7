package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/domain"
	"pharmapos/internal/domain/sale"
)

const (
	salesTable     = "sales"
	saleLinesTable = "sale_lines"
)

var saleCols = []string{
	"id", "sale_number", "client_id", "user_id", "sale_date",
	"subtotal", "discount_percentage", "discount_amount",
	"loyalty_points_used", "redemption_value",
	"total", "loyalty_points_earned", "status",
	"created_at", "updated_at",
	"cancelled_at", "cancelled_by", "cancel_reason",
}

var saleLineCols = []string{
	"id", "sale_id", "line_no", "medicament_id",
	"quantity", "unit_price", "line_total", "created_at",
}

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *TxManager) *SaleRepo {
	return &SaleRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ sale.Repository = (*SaleRepo)(nil)

// Insert writes the header and all lines, filling generated IDs.
func (r *SaleRepo) Insert(ctx context.Context, s *sale.Sale) error {
	q := r.builder.Insert(salesTable).
		Columns(
			"sale_number", "client_id", "user_id", "sale_date",
			"subtotal", "discount_percentage", "discount_amount",
			"loyalty_points_used", "redemption_value",
			"total", "loyalty_points_earned", "status",
			"created_at", "updated_at",
		).
		Values(
			s.SaleNumber, s.ClientID, s.UserID, s.SaleDate,
			s.Subtotal, s.DiscountPercentage, s.DiscountAmount,
			s.PointsUsed, s.RedemptionValue,
			s.TotalAmount, s.PointsEarned, s.Status,
			s.CreatedAt, s.UpdatedAt,
		).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&s.ID); err != nil {
		return MapError(err, "sale")
	}

	for i := range s.Lines {
		s.Lines[i].SaleID = s.ID
	}

	return r.insertLines(ctx, s.Lines)
}

func (r *SaleRepo) insertLines(ctx context.Context, lines []sale.SaleLine) error {
	if len(lines) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if r.txManager.GetTx(ctx) != nil {
		inserter := NewBatchInserter(r.txManager)
		columns := []string{
			"sale_id", "line_no", "medicament_id",
			"quantity", "unit_price", "line_total", "created_at",
		}
		rows := make([][]any, 0, len(lines))
		for _, l := range lines {
			rows = append(rows, []any{
				l.SaleID, l.LineNo, l.MedicamentID,
				l.Quantity, l.UnitPrice, l.LineTotal, l.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, saleLinesTable, columns, rows); err != nil {
			return MapError(err, "sale line")
		}
		return nil
	}

	q := r.builder.Insert(saleLinesTable).Columns(
		"sale_id", "line_no", "medicament_id",
		"quantity", "unit_price", "line_total", "created_at",
	)
	for _, l := range lines {
		q = q.Values(l.SaleID, l.LineNo, l.MedicamentID, l.Quantity, l.UnitPrice, l.LineTotal, l.CreatedAt)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return MapError(err, "sale line")
	}

	return nil
}

// GetByID retrieves a sale with its lines.
func (r *SaleRepo) GetByID(ctx context.Context, id int64) (*sale.Sale, error) {
	q := r.builder.Select(saleCols...).
		From(salesTable).
		Where(squirrel.Eq{"id": id}).
		Limit(1)
	return r.getOne(ctx, q, id)
}

// GetByIDForUpdate retrieves a sale with its lines under a row lock on
// the header. Serializes cancellation against itself.
func (r *SaleRepo) GetByIDForUpdate(ctx context.Context, id int64) (*sale.Sale, error) {
	q := r.builder.Select(saleCols...).
		From(salesTable).
		Where(squirrel.Eq{"id": id}).
		Suffix("FOR UPDATE")
	return r.getOne(ctx, q, id)
}

// GetByNumber retrieves a sale by its unique number.
func (r *SaleRepo) GetByNumber(ctx context.Context, number string) (*sale.Sale, error) {
	q := r.builder.Select(saleCols...).
		From(salesTable).
		Where(squirrel.Eq{"sale_number": number}).
		Limit(1)
	return r.getOne(ctx, q, number)
}

func (r *SaleRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*sale.Sale, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s sale.Sale
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", key)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	if err := r.loadLines(ctx, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *SaleRepo) loadLines(ctx context.Context, s *sale.Sale) error {
	q := r.builder.Select(saleLineCols...).
		From(saleLinesTable).
		Where(squirrel.Eq{"sale_id": s.ID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &s.Lines, sql, args...); err != nil {
		return fmt.Errorf("select sale lines: %w", err)
	}

	return nil
}

// MarkCancelled transitions the sale to cancelled.
func (r *SaleRepo) MarkCancelled(ctx context.Context, id int64, by int64, reason string, at time.Time) error {
	q := r.builder.Update(salesTable).
		Set("status", sale.StatusCancelled).
		Set("cancelled_at", at).
		Set("cancelled_by", by).
		Set("cancel_reason", nullableString(reason)).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return MapError(err, "sale")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", id)
	}

	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// List retrieves sales, newest first.
func (r *SaleRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*sale.Sale], error) {
	return r.list(ctx, r.builder.Select(saleCols...).From(salesTable), filter)
}

// ListByClient retrieves a client's sales, newest first.
func (r *SaleRepo) ListByClient(ctx context.Context, clientID int64, filter domain.ListFilter) (domain.ListResult[*sale.Sale], error) {
	q := r.builder.Select(saleCols...).
		From(salesTable).
		Where(squirrel.Eq{"client_id": clientID})
	return r.list(ctx, q, filter)
}

// ListBetween retrieves sales created in [from, to).
func (r *SaleRepo) ListBetween(ctx context.Context, from, to time.Time, filter domain.ListFilter) (domain.ListResult[*sale.Sale], error) {
	q := r.builder.Select(saleCols...).
		From(salesTable).
		Where(squirrel.GtOrEq{"sale_date": from}).
		Where(squirrel.Lt{"sale_date": to})
	return r.list(ctx, q, filter)
}

func (r *SaleRepo) list(ctx context.Context, q squirrel.SelectBuilder, filter domain.ListFilter) (domain.ListResult[*sale.Sale], error) {
	filter = filter.Normalize()
	result := domain.ListResult[*sale.Sale]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"sale_number": "%" + filter.Search + "%"})
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

	orderBy, err := parseOrderBy(filter.OrderBy, saleCols, "sale_date DESC, id DESC")
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
		return result, fmt.Errorf("list sales: %w", err)
	}

	for _, s := range result.Items {
		if err := r.loadLines(ctx, s); err != nil {
			return result, err
		}
	}

	return result, nil
}
