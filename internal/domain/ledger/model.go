// Package ledger provides the append-only stock movement ledger. The
// ledger is the source of truth for inventory; the cached quantity on
// each medicament is an aggregate maintained in the same transaction as
// every movement and rebuildable from the ledger alone.
package ledger

import (
	"context"
	"time"

	"pharmapos/internal/core/apperror"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	// TypeEntry adds stock (deliveries, sale cancellations).
	TypeEntry MovementType = "entry"

	// TypeExit removes stock (sales, losses).
	TypeExit MovementType = "exit"

	// TypeAdjustment carries a signed correction from a recount.
	TypeAdjustment MovementType = "adjustment"
)

// StockMovement is one immutable ledger entry. Movements are never
// updated or deleted; corrections are new compensating movements.
type StockMovement struct {
	ID           int64        `db:"id" json:"id"`
	MedicamentID int64        `db:"medicament_id" json:"medicamentId"`
	MovementType MovementType `db:"movement_type" json:"movementType"`

	// Quantity is strictly positive for entry and exit. For adjustments
	// it is the signed delta and must be non-zero.
	Quantity int `db:"quantity" json:"quantity"`

	Reason *string `db:"reason" json:"reason,omitempty"`

	// UserID records the operator. Survives user deletion as NULL.
	UserID *int64 `db:"user_id" json:"userId,omitempty"`

	// SaleID links movements generated by a sale or its cancellation.
	// Stored in the reference_id column.
	SaleID *int64 `db:"reference_id" json:"saleId,omitempty"`

	// ReversalOf points at the movement this one compensates. The unique
	// constraint on it makes double reversal impossible.
	ReversalOf *int64 `db:"reversal_of" json:"reversalOf,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Delta returns the signed effect of the movement on stock.
func (m *StockMovement) Delta() int {
	switch m.MovementType {
	case TypeEntry:
		return m.Quantity
	case TypeExit:
		return -m.Quantity
	default:
		return m.Quantity
	}
}

// Validate checks movement invariants.
func (m *StockMovement) Validate(ctx context.Context) error {
	switch m.MovementType {
	case TypeEntry, TypeExit:
		if m.Quantity <= 0 {
			return apperror.NewValidation("movement quantity must be positive").
				WithDetail("field", "quantity")
		}
	case TypeAdjustment:
		if m.Quantity == 0 {
			return apperror.NewValidation("adjustment delta must be non-zero").
				WithDetail("field", "quantity")
		}
	default:
		return apperror.NewValidation("invalid movement type").
			WithDetail("field", "movementType").
			WithDetail("value", string(m.MovementType))
	}
	if m.MedicamentID <= 0 {
		return apperror.NewValidation("medicament is required").
			WithDetail("field", "medicamentId")
	}
	return nil
}

// StockBalance is a locked stock row used during reservation.
type StockBalance struct {
	MedicamentID int64 `db:"id"`
	Quantity     int   `db:"quantity_in_stock"`
	IsActive     bool  `db:"is_active"`
}
