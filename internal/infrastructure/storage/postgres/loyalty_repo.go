package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/domain/loyalty"
)

const loyaltyTiersTable = "loyalty_tiers"

var loyaltyTierCols = []string{
	"id", "name", "min_points", "discount_percentage", "description", "is_active",
}

// LoyaltyTierRepo implements loyalty.Repository.
type LoyaltyTierRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewLoyaltyTierRepo creates a new loyalty tier repository.
func NewLoyaltyTierRepo(txManager *TxManager) *LoyaltyTierRepo {
	return &LoyaltyTierRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ loyalty.Repository = (*LoyaltyTierRepo)(nil)

// ListOrdered retrieves active tiers ordered by ascending MinPoints.
func (r *LoyaltyTierRepo) ListOrdered(ctx context.Context) ([]*loyalty.Tier, error) {
	q := r.builder.Select(loyaltyTierCols...).
		From(loyaltyTiersTable).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("min_points")

	return r.selectTiers(ctx, q)
}

// ListAll retrieves every tier including inactive ones.
func (r *LoyaltyTierRepo) ListAll(ctx context.Context) ([]*loyalty.Tier, error) {
	q := r.builder.Select(loyaltyTierCols...).
		From(loyaltyTiersTable).
		OrderBy("min_points")

	return r.selectTiers(ctx, q)
}

func (r *LoyaltyTierRepo) selectTiers(ctx context.Context, q squirrel.SelectBuilder) ([]*loyalty.Tier, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var tiers []*loyalty.Tier
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &tiers, sql, args...); err != nil {
		return nil, fmt.Errorf("select tiers: %w", err)
	}

	return tiers, nil
}

// GetByID retrieves a tier by ID.
func (r *LoyaltyTierRepo) GetByID(ctx context.Context, id int64) (*loyalty.Tier, error) {
	q := r.builder.Select(loyaltyTierCols...).
		From(loyaltyTiersTable).
		Where(squirrel.Eq{"id": id}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t loyalty.Tier
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("loyalty tier", id)
		}
		return nil, fmt.Errorf("get tier: %w", err)
	}

	return &t, nil
}

// Update modifies a tier's threshold or discount.
func (r *LoyaltyTierRepo) Update(ctx context.Context, t *loyalty.Tier) error {
	q := r.builder.Update(loyaltyTiersTable).
		Set("name", t.Name).
		Set("min_points", t.MinPoints).
		Set("discount_percentage", t.DiscountPercent).
		Set("description", t.Description).
		Set("is_active", t.IsActive).
		Where(squirrel.Eq{"id": t.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return MapError(err, "loyalty tier")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("loyalty tier", t.ID)
	}

	return nil
}
