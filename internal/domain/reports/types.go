// Package reports provides read-only derived queries over committed
// data: daily sales, client tiers, and stock statistics. Nothing here
// writes or materializes state.
package reports

import (
	"time"

	"pharmapos/internal/core/types"
)

// DailySales summarizes one day of trading.
type DailySales struct {
	Date           time.Time   `json:"date"`
	SalesCount     int         `json:"salesCount"`
	CancelledCount int         `json:"cancelledCount"`
	GrossTotal     types.Money `json:"grossTotal"`
	DiscountTotal  types.Money `json:"discountTotal"`
	NetTotal       types.Money `json:"netTotal"`
	PointsEarned   int         `json:"pointsEarned"`
	PointsUsed     int         `json:"pointsUsed"`
}

// SaleRow is one line of the daily sales listing, joined with client
// and operator names.
type SaleRow struct {
	SaleID       int64       `db:"sale_id" json:"saleId"`
	SaleNumber   string      `db:"sale_number" json:"saleNumber"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	ClientName   *string     `db:"client_name" json:"clientName,omitempty"`
	OperatorName string      `db:"operator_name" json:"operatorName"`
	TotalAmount  types.Money `db:"total_amount" json:"totalAmount"`
	Status       string      `db:"status" json:"status"`
}

// ClientTier is the resolved loyalty standing of one client.
type ClientTier struct {
	ClientID        int64       `json:"clientId"`
	Code            string      `json:"code"`
	Name            string      `json:"name"`
	LoyaltyPoints   int         `json:"loyaltyPoints"`
	TotalSpent      types.Money `json:"totalSpent"`
	TierName        string      `json:"tierName"`
	DiscountPercent types.Money `json:"discountPercent"`
	NextTierName    *string     `json:"nextTierName,omitempty"`
	PointsToNext    *int        `json:"pointsToNext,omitempty"`
}

// StockStats aggregates the state of the catalog.
type StockStats struct {
	ActiveCount       int         `db:"active_count" json:"activeCount"`
	LowStockCount     int         `db:"low_stock_count" json:"lowStockCount"`
	ExpiringSoonCount int         `db:"expiring_soon_count" json:"expiringSoonCount"`
	PurchaseValue     types.Money `db:"purchase_value" json:"purchaseValue"`
	RetailValue       types.Money `db:"retail_value" json:"retailValue"`
}
