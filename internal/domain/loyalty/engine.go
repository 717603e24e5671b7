package loyalty

import (
	"context"

	"github.com/shopspring/decimal"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/types"
)

// Config holds accrual and redemption parameters.
type Config struct {
	// PointsPerUnit is the currency amount that earns one point.
	PointsPerUnit int

	// PointValue is the currency value of a single redeemed point.
	PointValue types.Money

	// Rule optionally replaces the default accrual formula.
	Rule *AccrualRule
}

// DefaultConfig returns the standard accrual parameters: one point per
// 10 currency units spent, each point worth 0.10 on redemption.
func DefaultConfig() Config {
	return Config{
		PointsPerUnit: 10,
		PointValue:    types.MustMoney("0.1"),
	}
}

// Engine computes tiers, discounts, and point movements. It is pure
// computation over the tier table; persisting balances is the caller's
// job, inside the caller's transaction.
type Engine struct {
	repo Repository
	cfg  Config
}

// NewEngine creates a loyalty engine.
func NewEngine(repo Repository, cfg Config) *Engine {
	if cfg.PointsPerUnit <= 0 {
		cfg.PointsPerUnit = 10
	}
	if cfg.PointValue.IsZero() {
		cfg.PointValue = types.MustMoney("0.1")
	}
	return &Engine{repo: repo, cfg: cfg}
}

// Tiers returns all tiers ordered by ascending threshold.
func (e *Engine) Tiers(ctx context.Context) ([]*Tier, error) {
	return e.repo.ListOrdered(ctx)
}

// AllTiers returns every tier including inactive ones, for administration.
func (e *Engine) AllTiers(ctx context.Context) ([]*Tier, error) {
	return e.repo.ListAll(ctx)
}

// UpdateTier modifies a tier's threshold or discount. Rejects changes
// that would make a higher threshold carry a lower discount than a
// tier below it.
func (e *Engine) UpdateTier(ctx context.Context, t *Tier) error {
	if err := t.Validate(ctx); err != nil {
		return err
	}
	if _, err := e.repo.GetByID(ctx, t.ID); err != nil {
		return err
	}

	tiers, err := e.repo.ListOrdered(ctx)
	if err != nil {
		return err
	}
	for _, other := range tiers {
		if other.ID == t.ID || !t.IsActive {
			continue
		}
		lowerWithBiggerDiscount := other.MinPoints < t.MinPoints &&
			other.DiscountPercent.GreaterThan(t.DiscountPercent)
		higherWithSmallerDiscount := other.MinPoints > t.MinPoints &&
			other.DiscountPercent.LessThan(t.DiscountPercent)
		if lowerWithBiggerDiscount || higherWithSmallerDiscount {
			return apperror.NewValidation("tier discounts must not decrease with threshold").
				WithDetail("conflicting_tier", other.Name)
		}
	}

	return e.repo.Update(ctx, t)
}

// ResolveTier returns the highest tier whose threshold the point balance
// meets. With the seeded zero-threshold base tier every balance resolves.
func (e *Engine) ResolveTier(ctx context.Context, points int) (*Tier, error) {
	tiers, err := e.repo.ListOrdered(ctx)
	if err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		return nil, apperror.NewInternal(nil).WithDetail("reason", "no loyalty tiers configured")
	}

	current := tiers[0]
	for _, t := range tiers[1:] {
		if points >= t.MinPoints {
			current = t
		}
	}
	return current, nil
}

// NextTier returns the next tier above the balance and the points still
// needed to reach it. Returns nil when the balance is already at the top.
func (e *Engine) NextTier(ctx context.Context, points int) (*Tier, int, error) {
	tiers, err := e.repo.ListOrdered(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, t := range tiers {
		if t.MinPoints > points {
			return t, t.MinPoints - points, nil
		}
	}
	return nil, 0, nil
}

// ComputeDiscount returns the tier discount amount for a subtotal,
// rounded to currency precision.
func (e *Engine) ComputeDiscount(amount types.Money, tier *Tier) types.Money {
	if tier == nil || tier.DiscountPercent.IsZero() {
		return decimal.Zero
	}
	return types.ApplyPercent(amount, tier.DiscountPercent)
}

// AccruePoints computes points earned on a final sale total. The default
// formula is floor(amount / points_per_unit); a configured CEL rule
// replaces it.
func (e *Engine) AccruePoints(amount types.Money) (int, error) {
	if amount.IsNegative() {
		return 0, nil
	}
	if e.cfg.Rule != nil {
		return e.cfg.Rule.Points(amount.InexactFloat64(), e.cfg.PointsPerUnit)
	}
	points := amount.Div(decimal.NewFromInt(int64(e.cfg.PointsPerUnit))).IntPart()
	return int(points), nil
}

// RedemptionValue converts a point count to its currency value.
func (e *Engine) RedemptionValue(points int) types.Money {
	return types.RoundCurrency(e.cfg.PointValue.Mul(decimal.NewFromInt(int64(points))))
}

// CheckRedemption validates a redemption request against a balance.
func (e *Engine) CheckRedemption(clientID int64, balance, requested int) error {
	if requested < 0 {
		return apperror.NewValidation("points to redeem cannot be negative").
			WithDetail("field", "pointsRedeemed")
	}
	if requested > balance {
		return apperror.NewInsufficientPoints(clientID, requested, balance)
	}
	return nil
}
