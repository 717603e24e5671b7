package client

import (
	"context"

	"pharmapos/internal/core/types"
	"pharmapos/internal/domain"
)

// Repository defines the interface for Client persistence.
type Repository interface {
	// Create inserts a new client and fills its generated ID.
	Create(ctx context.Context, c *Client) error

	// GetByID retrieves a client by ID.
	GetByID(ctx context.Context, id int64) (*Client, error)

	// GetByCode retrieves a client by its unique code.
	GetByCode(ctx context.Context, code string) (*Client, error)

	// GetForUpdate retrieves a client with a row lock. Used to serialize
	// concurrent point accruals and redemptions on the same client.
	GetForUpdate(ctx context.Context, id int64) (*Client, error)

	// Update modifies client contact fields.
	Update(ctx context.Context, c *Client) error

	// Delete removes a client. Their sales survive with client_id set to
	// NULL by the schema.
	Delete(ctx context.Context, id int64) error

	// AdjustBalance atomically shifts the point balance and total spent.
	// Fails with a constraint violation if points would go negative.
	AdjustBalance(ctx context.Context, id int64, pointsDelta int, spentDelta types.Money) error

	// AdjustBalanceClamped is AdjustBalance with both values floored at
	// zero instead of failing. Used by sale cancellation, where partial
	// reversal must not abort the compensating transaction.
	AdjustBalanceClamped(ctx context.Context, id int64, pointsDelta int, spentDelta types.Money) error

	// ExistsByCode checks code uniqueness, excluding the given ID.
	ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error)

	// List retrieves clients with filtering and pagination.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Client], error)
}
