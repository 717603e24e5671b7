// Package catalog provides the medicament catalog: the read model for
// pricing and availability plus its maintenance operations.
package catalog

import (
	"context"
	"strings"
	"time"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/types"
)

// Medicament represents a sellable pharmacy product.
type Medicament struct {
	ID int64 `db:"id" json:"id"`

	// Code is the unique catalog code, generated when not provided.
	Code string `db:"code" json:"code"`

	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
	Category    *string `db:"category" json:"category,omitempty"`

	Manufacturer *string `db:"manufacturer" json:"manufacturer,omitempty"`

	PurchasePrice types.Money `db:"purchase_price" json:"purchasePrice"`
	SellingPrice  types.Money `db:"selling_price" json:"sellingPrice"`

	// QuantityInStock is a cached aggregate of the stock movement ledger.
	// It is maintained inside the same transaction as every movement and
	// can be rebuilt from the ledger at any time.
	QuantityInStock int `db:"quantity_in_stock" json:"quantityInStock"`

	// StockThreshold is the low-stock alert level for this medicament.
	StockThreshold int `db:"stock_threshold" json:"stockThreshold"`

	ExpirationDate *time.Time `db:"expiration_date" json:"expirationDate,omitempty"`

	// IsActive is the soft-delete flag. Inactive medicaments are kept for
	// sale history but cannot be sold.
	IsActive bool `db:"is_active" json:"isActive"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks medicament invariants.
func (m *Medicament) Validate(ctx context.Context) error {
	if strings.TrimSpace(m.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if m.PurchasePrice.IsNegative() {
		return apperror.NewValidation("purchase price cannot be negative").
			WithDetail("field", "purchasePrice")
	}
	if m.SellingPrice.IsNegative() {
		return apperror.NewValidation("selling price cannot be negative").
			WithDetail("field", "sellingPrice")
	}
	if m.StockThreshold < 0 {
		return apperror.NewValidation("stock threshold cannot be negative").
			WithDetail("field", "stockThreshold")
	}
	return nil
}

// IsLowStock reports whether the cached quantity is at or below the threshold.
func (m *Medicament) IsLowStock() bool {
	return m.QuantityInStock <= m.StockThreshold
}

// IsExpiringSoon reports whether the medicament expires within the given
// number of days from now. Medicaments without expiration never expire.
func (m *Medicament) IsExpiringSoon(days int, now time.Time) bool {
	if m.ExpirationDate == nil {
		return false
	}
	return !m.ExpirationDate.After(now.AddDate(0, 0, days))
}

// IsExpired reports whether the expiration date has passed.
func (m *Medicament) IsExpired(now time.Time) bool {
	if m.ExpirationDate == nil {
		return false
	}
	return m.ExpirationDate.Before(now)
}
