package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/domain"
	"pharmapos/internal/domain/catalog"
)

const medicamentsTable = "medicaments"

var medicamentCols = []string{
	"id", "code", "name", "description", "category",
	"purchase_price", "selling_price",
	"quantity_in_stock", "stock_threshold",
	"expiration_date", "manufacturer", "is_active",
	"created_at", "updated_at",
}

// MedicamentRepo implements catalog.Repository.
type MedicamentRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewMedicamentRepo creates a new medicament repository.
func NewMedicamentRepo(txManager *TxManager) *MedicamentRepo {
	return &MedicamentRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ catalog.Repository = (*MedicamentRepo)(nil)

// Create inserts a new medicament and fills its generated ID.
func (r *MedicamentRepo) Create(ctx context.Context, m *catalog.Medicament) error {
	q := r.builder.Insert(medicamentsTable).
		Columns(
			"code", "name", "description", "category",
			"purchase_price", "selling_price",
			"quantity_in_stock", "stock_threshold",
			"expiration_date", "manufacturer", "is_active",
			"created_at", "updated_at",
		).
		Values(
			m.Code, m.Name, m.Description, m.Category,
			m.PurchasePrice, m.SellingPrice,
			m.QuantityInStock, m.StockThreshold,
			m.ExpirationDate, m.Manufacturer, m.IsActive,
			m.CreatedAt, m.UpdatedAt,
		).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&m.ID); err != nil {
		return MapError(err, "medicament")
	}

	return nil
}

func (r *MedicamentRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(medicamentCols...).From(medicamentsTable)
}

// GetByID retrieves a medicament by ID.
func (r *MedicamentRepo) GetByID(ctx context.Context, id int64) (*catalog.Medicament, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": id}).Limit(1), id)
}

// GetByCode retrieves a medicament by its unique code.
func (r *MedicamentRepo) GetByCode(ctx context.Context, code string) (*catalog.Medicament, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"code": code}).Limit(1), code)
}

// GetForUpdate retrieves a medicament with a row lock.
func (r *MedicamentRepo) GetForUpdate(ctx context.Context, id int64) (*catalog.Medicament, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": id}).Suffix("FOR UPDATE"), id)
}

func (r *MedicamentRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*catalog.Medicament, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m catalog.Medicament
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("medicament", key)
		}
		return nil, fmt.Errorf("get medicament: %w", err)
	}

	return &m, nil
}

// GetByIDs retrieves several medicaments at once, ordered by ID.
func (r *MedicamentRepo) GetByIDs(ctx context.Context, ids []int64) ([]*catalog.Medicament, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := r.baseSelect().
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*catalog.Medicament
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select medicaments: %w", err)
	}

	return items, nil
}

// Update modifies catalog fields. The cached stock quantity is owned by
// the ledger and is not touched here.
func (r *MedicamentRepo) Update(ctx context.Context, m *catalog.Medicament) error {
	q := r.builder.Update(medicamentsTable).
		Set("name", m.Name).
		Set("description", m.Description).
		Set("category", m.Category).
		Set("purchase_price", m.PurchasePrice).
		Set("selling_price", m.SellingPrice).
		Set("stock_threshold", m.StockThreshold).
		Set("expiration_date", m.ExpirationDate).
		Set("manufacturer", m.Manufacturer).
		Set("updated_at", m.UpdatedAt).
		Where(squirrel.Eq{"id": m.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return MapError(err, "medicament")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("medicament", m.ID)
	}

	return nil
}

// SetActive sets or clears the soft-delete flag.
func (r *MedicamentRepo) SetActive(ctx context.Context, id int64, active bool) error {
	q := r.builder.Update(medicamentsTable).
		Set("is_active", active).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return MapError(err, "medicament")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("medicament", id)
	}

	return nil
}

// List retrieves medicaments with filtering and pagination.
func (r *MedicamentRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*catalog.Medicament], error) {
	q := r.baseSelect()

	if !filter.IncludeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
		})
	}

	return r.list(ctx, q, filter)
}

// FindLowStock retrieves active medicaments at or below their threshold.
func (r *MedicamentRepo) FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*catalog.Medicament], error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.Expr("quantity_in_stock <= stock_threshold"))

	return r.list(ctx, q, filter)
}

// FindExpiringSoon retrieves active medicaments expiring within the
// given number of days.
func (r *MedicamentRepo) FindExpiringSoon(ctx context.Context, days int, filter domain.ListFilter) (domain.ListResult[*catalog.Medicament], error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.Expr("expiration_date IS NOT NULL")).
		Where(squirrel.Expr("expiration_date <= CURRENT_DATE + ?::int", days))

	return r.list(ctx, q, filter)
}

func (r *MedicamentRepo) list(ctx context.Context, q squirrel.SelectBuilder, filter domain.ListFilter) (domain.ListResult[*catalog.Medicament], error) {
	filter = filter.Normalize()
	result := domain.ListResult[*catalog.Medicament]{
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

	orderBy, err := parseOrderBy(filter.OrderBy, medicamentCols, "name ASC")
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
		return result, fmt.Errorf("list medicaments: %w", err)
	}

	return result, nil
}

// ExistsByCode checks code uniqueness, excluding the given ID.
func (r *MedicamentRepo) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	q := r.builder.Select("1").
		From(medicamentsTable).
		Where(squirrel.Eq{"code": code}).
		Limit(1)
	if excludeID > 0 {
		q = q.Where(squirrel.NotEq{"id": excludeID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists int
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists by code: %w", err)
	}

	return true, nil
}
