// Package sale provides the sale lifecycle: transactional processing of
// a cart into a committed sale, and its exact reversal on cancellation.
package sale

import (
	"context"
	"time"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/types"
)

// Status is the sale lifecycle state. A sale is written only once it is
// completed; cancellation is the only transition after that.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Sale is an immutable header once committed. Monetary columns are
// snapshots; later catalog or tier changes never alter a committed sale.
type Sale struct {
	ID         int64  `db:"id" json:"id"`
	SaleNumber string `db:"sale_number" json:"saleNumber"`

	// ClientID is optional (walk-in sales). Survives client deletion as
	// NULL by the schema.
	ClientID *int64 `db:"client_id" json:"clientId,omitempty"`

	// UserID is the operator. Users with sales cannot be deleted.
	UserID int64 `db:"user_id" json:"userId"`

	SaleDate time.Time `db:"sale_date" json:"saleDate"`

	Subtotal           types.Money `db:"subtotal" json:"subtotal"`
	DiscountPercentage types.Money `db:"discount_percentage" json:"discountPercentage"`
	DiscountAmount     types.Money `db:"discount_amount" json:"discountAmount"`

	// PointsUsed were redeemed against this sale; RedemptionValue is the
	// currency they were worth at the time.
	PointsUsed      int         `db:"loyalty_points_used" json:"pointsUsed"`
	RedemptionValue types.Money `db:"redemption_value" json:"redemptionValue"`

	TotalAmount  types.Money `db:"total" json:"totalAmount"`
	PointsEarned int         `db:"loyalty_points_earned" json:"pointsEarned"`

	Status Status `db:"status" json:"status"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelledBy  *int64     `db:"cancelled_by" json:"cancelledBy,omitempty"`
	CancelReason *string    `db:"cancel_reason" json:"cancelReason,omitempty"`

	// Table part
	Lines []SaleLine `db:"-" json:"lines"`
}

// SaleLine is one cart line with its price snapshot.
type SaleLine struct {
	ID           int64       `db:"id" json:"id"`
	SaleID       int64       `db:"sale_id" json:"saleId"`
	LineNo       int         `db:"line_no" json:"lineNo"`
	MedicamentID int64       `db:"medicament_id" json:"medicamentId"`
	Quantity     int         `db:"quantity" json:"quantity"`
	UnitPrice    types.Money `db:"unit_price" json:"unitPrice"`
	LineTotal    types.Money `db:"line_total" json:"lineTotal"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
}

// IsCancelled reports whether the sale has been cancelled.
func (s *Sale) IsCancelled() bool {
	return s.Status == StatusCancelled
}

// Validate checks header invariants before persisting.
func (s *Sale) Validate(ctx context.Context) error {
	if s.UserID <= 0 {
		return apperror.NewValidation("operator is required").
			WithDetail("field", "userId")
	}
	if len(s.Lines) == 0 {
		return apperror.NewValidation("sale must have at least one line").
			WithDetail("field", "lines")
	}
	if s.Subtotal.IsNegative() || s.DiscountAmount.IsNegative() || s.TotalAmount.IsNegative() {
		return apperror.NewValidation("sale amounts cannot be negative")
	}
	for i, line := range s.Lines {
		if line.Quantity <= 0 {
			return apperror.NewValidation("line quantity must be positive").
				WithDetail("lineNo", i+1)
		}
		if line.UnitPrice.IsNegative() {
			return apperror.NewValidation("line unit price cannot be negative").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}
