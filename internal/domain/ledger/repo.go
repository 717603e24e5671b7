package ledger

import (
	"context"
	"time"

	"pharmapos/internal/domain"
)

// Repository defines the interface for ledger persistence.
type Repository interface {
	// Insert appends a movement and fills its generated ID.
	Insert(ctx context.Context, m *StockMovement) error

	// GetByID retrieves a movement by ID.
	GetByID(ctx context.Context, id int64) (*StockMovement, error)

	// ListByMedicament retrieves movements for one medicament, newest first.
	ListByMedicament(ctx context.Context, medicamentID int64, filter domain.ListFilter) (domain.ListResult[*StockMovement], error)

	// ListBySale retrieves all movements linked to a sale.
	ListBySale(ctx context.Context, saleID int64) ([]*StockMovement, error)

	// ListSince retrieves movements created at or after the given time.
	ListSince(ctx context.Context, since time.Time, filter domain.ListFilter) (domain.ListResult[*StockMovement], error)

	// LockBalances locks the stock rows for the given medicaments in
	// ascending ID order and returns their current state. Ordered locking
	// keeps concurrent multi-line sales deadlock-free.
	LockBalances(ctx context.Context, medicamentIDs []int64) ([]StockBalance, error)

	// ApplyDelta atomically shifts the cached quantity of a medicament.
	// The update refuses to drive the quantity negative; in that case it
	// affects no rows and the caller maps it to an insufficient stock
	// error. Returns the new quantity.
	ApplyDelta(ctx context.Context, medicamentID int64, delta int) (int, error)

	// SumDeltas replays the ledger for one medicament.
	SumDeltas(ctx context.Context, medicamentID int64) (int, error)

	// SetQuantity overwrites the cached quantity (rebuild only).
	SetQuantity(ctx context.Context, medicamentID int64, quantity int) error
}
