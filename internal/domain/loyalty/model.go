// Package loyalty provides the tier table, discount computation, and
// point accrual and redemption rules.
package loyalty

import (
	"context"
	"strings"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/types"
)

// Tier represents a loyalty level with its entry threshold and discount.
type Tier struct {
	ID              int64       `db:"id" json:"id"`
	Name            string      `db:"name" json:"name"`
	MinPoints       int         `db:"min_points" json:"minPoints"`
	DiscountPercent types.Money `db:"discount_percentage" json:"discountPercentage"`
	Description     *string     `db:"description" json:"description,omitempty"`
	IsActive        bool        `db:"is_active" json:"isActive"`
}

// Validate checks tier invariants.
func (t *Tier) Validate(ctx context.Context) error {
	if strings.TrimSpace(t.Name) == "" {
		return apperror.NewValidation("tier name is required").
			WithDetail("field", "name")
	}
	if t.MinPoints < 0 {
		return apperror.NewValidation("tier minimum points cannot be negative").
			WithDetail("field", "minPoints")
	}
	if t.DiscountPercent.IsNegative() || t.DiscountPercent.GreaterThan(types.NewMoney(100)) {
		return apperror.NewValidation("tier discount must be between 0 and 100").
			WithDetail("field", "discountPercent")
	}
	return nil
}

// Repository defines the interface for Tier persistence.
type Repository interface {
	// ListOrdered retrieves active tiers ordered by ascending MinPoints.
	ListOrdered(ctx context.Context) ([]*Tier, error)

	// ListAll retrieves every tier including inactive ones.
	ListAll(ctx context.Context) ([]*Tier, error)

	// GetByID retrieves a tier by ID.
	GetByID(ctx context.Context, id int64) (*Tier, error)

	// Update modifies a tier's threshold or discount.
	Update(ctx context.Context, t *Tier) error
}
