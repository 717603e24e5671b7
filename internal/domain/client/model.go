// Package client provides the pharmacy client registry and loyalty
// balances.
package client

import (
	"context"
	"strings"
	"time"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/types"
)

// Client represents a registered pharmacy customer.
type Client struct {
	ID int64 `db:"id" json:"id"`

	// Code is the unique client code, generated when not provided.
	Code string `db:"code" json:"code"`

	FirstName string  `db:"first_name" json:"firstName"`
	LastName  string  `db:"last_name" json:"lastName"`
	Phone     *string `db:"phone" json:"phone,omitempty"`
	Email     *string `db:"email" json:"email,omitempty"`
	Address   *string `db:"address" json:"address,omitempty"`

	// LoyaltyPoints is the current redeemable balance. The client's tier
	// is derived from it against tier thresholds, never stored.
	LoyaltyPoints int `db:"loyalty_points" json:"loyaltyPoints"`

	// TotalSpent accumulates final sale totals. It only decreases when a
	// sale is cancelled.
	TotalSpent types.Money `db:"total_spent" json:"totalSpent"`

	// IsActive is the soft-delete flag. Inactive clients keep their sale
	// history but no longer accrue points.
	IsActive bool `db:"is_active" json:"isActive"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// FullName returns the display name.
func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Validate checks client invariants.
func (c *Client) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.FirstName) == "" {
		return apperror.NewValidation("first name is required").
			WithDetail("field", "firstName")
	}
	if strings.TrimSpace(c.LastName) == "" {
		return apperror.NewValidation("last name is required").
			WithDetail("field", "lastName")
	}
	if c.LoyaltyPoints < 0 {
		return apperror.NewValidation("loyalty points cannot be negative").
			WithDetail("field", "loyaltyPoints")
	}
	if c.TotalSpent.IsNegative() {
		return apperror.NewValidation("total spent cannot be negative").
			WithDetail("field", "totalSpent")
	}
	return nil
}
