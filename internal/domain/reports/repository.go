package reports

import (
	"context"
	"time"
)

// Repository defines the read queries behind the reports.
type Repository interface {
	// DailySummary aggregates completed and cancelled sales in [from, to).
	DailySummary(ctx context.Context, from, to time.Time) (*DailySales, error)

	// SalesBetween lists sales in [from, to) joined with client and
	// operator names, newest first.
	SalesBetween(ctx context.Context, from, to time.Time) ([]SaleRow, error)

	// StockStats aggregates active catalog counts and valuations.
	// expiringDays bounds the expiring-soon window.
	StockStats(ctx context.Context, expiringDays int) (*StockStats, error)
}
