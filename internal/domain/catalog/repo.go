package catalog

import (
	"context"

	"pharmapos/internal/domain"
)

// Repository defines the interface for Medicament persistence.
type Repository interface {
	// Create inserts a new medicament and fills its generated ID.
	Create(ctx context.Context, m *Medicament) error

	// GetByID retrieves a medicament by ID.
	GetByID(ctx context.Context, id int64) (*Medicament, error)

	// GetByCode retrieves a medicament by its unique code.
	GetByCode(ctx context.Context, code string) (*Medicament, error)

	// GetByIDs retrieves several medicaments at once, ordered by ID.
	GetByIDs(ctx context.Context, ids []int64) ([]*Medicament, error)

	// GetForUpdate retrieves a medicament with a row lock.
	GetForUpdate(ctx context.Context, id int64) (*Medicament, error)

	// Update modifies catalog fields. The cached stock quantity is owned
	// by the ledger and is not touched here.
	Update(ctx context.Context, m *Medicament) error

	// SetActive sets or clears the soft-delete flag.
	SetActive(ctx context.Context, id int64, active bool) error

	// List retrieves medicaments with filtering and pagination.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Medicament], error)

	// FindLowStock retrieves active medicaments at or below their threshold.
	FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Medicament], error)

	// FindExpiringSoon retrieves active medicaments expiring within the
	// given number of days.
	FindExpiringSoon(ctx context.Context, days int, filter domain.ListFilter) (domain.ListResult[*Medicament], error)

	// ExistsByCode checks code uniqueness, excluding the given ID.
	ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error)
}
