package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain"
	"pharmapos/internal/domain/client"
)

const clientsTable = "clients"

var clientCols = []string{
	"id", "code", "first_name", "last_name",
	"phone", "email", "address",
	"loyalty_points", "total_spent", "is_active",
	"created_at", "updated_at",
}

// ClientRepo implements client.Repository.
type ClientRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewClientRepo creates a new client repository.
func NewClientRepo(txManager *TxManager) *ClientRepo {
	return &ClientRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ client.Repository = (*ClientRepo)(nil)

// Create inserts a new client and fills its generated ID.
func (r *ClientRepo) Create(ctx context.Context, c *client.Client) error {
	q := r.builder.Insert(clientsTable).
		Columns(
			"code", "first_name", "last_name",
			"phone", "email", "address",
			"loyalty_points", "total_spent", "is_active",
			"created_at", "updated_at",
		).
		Values(
			c.Code, c.FirstName, c.LastName,
			c.Phone, c.Email, c.Address,
			c.LoyaltyPoints, c.TotalSpent, c.IsActive,
			c.CreatedAt, c.UpdatedAt,
		).
		Suffix("RETURNING id")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&c.ID); err != nil {
		return MapError(err, "client")
	}

	return nil
}

func (r *ClientRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(clientCols...).From(clientsTable)
}

// GetByID retrieves a client by ID.
func (r *ClientRepo) GetByID(ctx context.Context, id int64) (*client.Client, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": id}).Limit(1), id)
}

// GetByCode retrieves a client by its unique code.
func (r *ClientRepo) GetByCode(ctx context.Context, code string) (*client.Client, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"code": code}).Limit(1), code)
}

// GetForUpdate retrieves a client with a row lock.
func (r *ClientRepo) GetForUpdate(ctx context.Context, id int64) (*client.Client, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": id}).Suffix("FOR UPDATE"), id)
}

func (r *ClientRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*client.Client, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c client.Client
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("client", key)
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	return &c, nil
}

// Update modifies client contact fields.
func (r *ClientRepo) Update(ctx context.Context, c *client.Client) error {
	q := r.builder.Update(clientsTable).
		Set("first_name", c.FirstName).
		Set("last_name", c.LastName).
		Set("phone", c.Phone).
		Set("email", c.Email).
		Set("address", c.Address).
		Set("updated_at", c.UpdatedAt).
		Where(squirrel.Eq{"id": c.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return MapError(err, "client")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("client", c.ID)
	}

	return nil
}

// Delete removes a client. Their sales survive with client_id set to
// NULL by the schema.
func (r *ClientRepo) Delete(ctx context.Context, id int64) error {
	q := r.builder.Delete(clientsTable).Where(squirrel.Eq{"id": id})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return MapError(err, "client")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("client", id)
	}

	return nil
}

// AdjustBalance atomically shifts the point balance and total spent.
// The conditional update refuses a negative point balance; in that case
// no row is touched and the current balance is reported back.
func (r *ClientRepo) AdjustBalance(ctx context.Context, id int64, pointsDelta int, spentDelta types.Money) error {
	sql := `
		UPDATE clients
		SET loyalty_points = loyalty_points + $2,
		    total_spent = total_spent + $3,
		    updated_at = now()
		WHERE id = $1 AND loyalty_points + $2 >= 0
	`

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, id, pointsDelta, spentDelta)
	if err != nil {
		return MapError(err, "client")
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	// Distinguish a missing client from a refused balance.
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return apperror.NewInsufficientPoints(id, -pointsDelta, c.LoyaltyPoints)
}

// AdjustBalanceClamped is AdjustBalance with both values floored at
// zero instead of failing. Used by sale cancellation, where partial
// reversal must not abort the compensating transaction.
func (r *ClientRepo) AdjustBalanceClamped(ctx context.Context, id int64, pointsDelta int, spentDelta types.Money) error {
	sql := `
		UPDATE clients
		SET loyalty_points = GREATEST(loyalty_points + $2, 0),
		    total_spent = GREATEST(total_spent + $3, 0),
		    updated_at = now()
		WHERE id = $1
	`

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, id, pointsDelta, spentDelta)
	if err != nil {
		return MapError(err, "client")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("client", id)
	}

	return nil
}

// ExistsByCode checks code uniqueness, excluding the given ID.
func (r *ClientRepo) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	q := r.builder.Select("1").
		From(clientsTable).
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

// List retrieves clients with filtering and pagination.
func (r *ClientRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*client.Client], error) {
	filter = filter.Normalize()
	result := domain.ListResult[*client.Client]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()
	if !filter.IncludeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"last_name": pattern},
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"phone": pattern},
		})
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

	orderBy, err := parseOrderBy(filter.OrderBy, clientCols, "last_name ASC, first_name ASC")
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
		return result, fmt.Errorf("list clients: %w", err)
	}

	return result, nil
}
