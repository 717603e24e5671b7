package sale

import (
	"context"
	"time"

	"pharmapos/internal/domain"
)

// Repository defines the interface for Sale persistence.
type Repository interface {
	// Insert writes the header and all lines, filling generated IDs.
	Insert(ctx context.Context, s *Sale) error

	// GetByID retrieves a sale with its lines.
	GetByID(ctx context.Context, id int64) (*Sale, error)

	// GetByIDForUpdate retrieves a sale with its lines under a row lock
	// on the header. Serializes cancellation against itself.
	GetByIDForUpdate(ctx context.Context, id int64) (*Sale, error)

	// GetByNumber retrieves a sale by its unique number.
	GetByNumber(ctx context.Context, number string) (*Sale, error)

	// MarkCancelled transitions the sale to cancelled.
	MarkCancelled(ctx context.Context, id int64, by int64, reason string, at time.Time) error

	// List retrieves sales, newest first.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Sale], error)

	// ListByClient retrieves a client's sales, newest first.
	ListByClient(ctx context.Context, clientID int64, filter domain.ListFilter) (domain.ListResult[*Sale], error)

	// ListBetween retrieves sales created in [from, to).
	ListBetween(ctx context.Context, from, to time.Time, filter domain.ListFilter) (domain.ListResult[*Sale], error)
}

// DiscountOverrideEvent describes an operator applying a manual discount
// in place of the loyalty tier discount.
type DiscountOverrideEvent struct {
	SaleID             int64     `json:"saleId"`
	SaleNumber         string    `json:"saleNumber"`
	OperatorID         int64     `json:"operatorId"`
	ClientID           *int64    `json:"clientId,omitempty"`
	DiscountPercentage string    `json:"discountPercentage"`
	DiscountAmount     string    `json:"discountAmount"`
	Subtotal           string    `json:"subtotal"`
	OccurredAt         time.Time `json:"occurredAt"`
}

// AuditRecorder persists discount override events. Recording happens in
// the same transaction as the sale so an override is never lost.
type AuditRecorder interface {
	RecordDiscountOverride(ctx context.Context, e DiscountOverrideEvent) error
}
