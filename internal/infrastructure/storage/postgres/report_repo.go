package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmapos/internal/domain/reports"
)

// ReportRepo implements reports.Repository with plain aggregate queries
// over committed data. Nothing here is materialized.
type ReportRepo struct {
	txManager *TxManager
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *TxManager) *ReportRepo {
	return &ReportRepo{txManager: txManager}
}

var _ reports.Repository = (*ReportRepo)(nil)

// DailySummary aggregates completed and cancelled sales in [from, to).
func (r *ReportRepo) DailySummary(ctx context.Context, from, to time.Time) (*reports.DailySales, error) {
	sql := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'completed')                             AS sales_count,
			COUNT(*) FILTER (WHERE status = 'cancelled')                             AS cancelled_count,
			COALESCE(SUM(subtotal)        FILTER (WHERE status = 'completed'), 0)    AS gross_total,
			COALESCE(SUM(discount_amount) FILTER (WHERE status = 'completed'), 0)    AS discount_total,
			COALESCE(SUM(total)           FILTER (WHERE status = 'completed'), 0)    AS net_total,
			COALESCE(SUM(loyalty_points_earned) FILTER (WHERE status = 'completed'), 0) AS points_earned,
			COALESCE(SUM(loyalty_points_used)   FILTER (WHERE status = 'completed'), 0) AS points_used
		FROM sales
		WHERE sale_date >= $1 AND sale_date < $2
	`

	summary := &reports.DailySales{Date: from}
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, from, to).Scan(
		&summary.SalesCount,
		&summary.CancelledCount,
		&summary.GrossTotal,
		&summary.DiscountTotal,
		&summary.NetTotal,
		&summary.PointsEarned,
		&summary.PointsUsed,
	)
	if err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}

	return summary, nil
}

// SalesBetween lists sales in [from, to) joined with client and
// operator names, newest first.
func (r *ReportRepo) SalesBetween(ctx context.Context, from, to time.Time) ([]reports.SaleRow, error) {
	sql := `
		SELECT
			s.id          AS sale_id,
			s.sale_number AS sale_number,
			s.sale_date   AS created_at,
			CASE WHEN c.id IS NULL THEN NULL
			     ELSE c.first_name || ' ' || c.last_name
			END           AS client_name,
			u.full_name   AS operator_name,
			s.total       AS total_amount,
			s.status      AS status
		FROM sales s
		LEFT JOIN clients c ON c.id = s.client_id
		JOIN users u ON u.id = s.user_id
		WHERE s.sale_date >= $1 AND s.sale_date < $2
		ORDER BY s.sale_date DESC, s.id DESC
	`

	var rows []reports.SaleRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, from, to); err != nil {
		return nil, fmt.Errorf("sales between: %w", err)
	}

	return rows, nil
}

// StockStats aggregates active catalog counts and valuations.
func (r *ReportRepo) StockStats(ctx context.Context, expiringDays int) (*reports.StockStats, error) {
	sql := `
		SELECT
			COUNT(*)                                                             AS active_count,
			COUNT(*) FILTER (WHERE quantity_in_stock <= stock_threshold)         AS low_stock_count,
			COUNT(*) FILTER (WHERE expiration_date IS NOT NULL
			                   AND expiration_date <= CURRENT_DATE + $1::int)    AS expiring_soon_count,
			COALESCE(SUM(purchase_price * quantity_in_stock), 0)                 AS purchase_value,
			COALESCE(SUM(selling_price * quantity_in_stock), 0)                  AS retail_value
		FROM medicaments
		WHERE is_active
	`

	var stats reports.StockStats
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &stats, sql, expiringDays); err != nil {
		return nil, fmt.Errorf("stock stats: %w", err)
	}

	return &stats, nil
}
