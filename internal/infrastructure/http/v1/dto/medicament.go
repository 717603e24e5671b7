package dto

import (
	"time"

	"pharmapos/internal/core/types"
	"pharmapos/internal/domain/catalog"
)

// CreateMedicamentRequest for adding a medicament to the catalog.
// InitialQuantity, when positive, is recorded as an entry movement.
type CreateMedicamentRequest struct {
	Code            string      `json:"code"`
	Name            string      `json:"name" binding:"required"`
	Description     *string     `json:"description"`
	Category        *string     `json:"category"`
	Manufacturer    *string     `json:"manufacturer"`
	PurchasePrice   types.Money `json:"purchasePrice"`
	SellingPrice    types.Money `json:"sellingPrice"`
	StockThreshold  int         `json:"stockThreshold"`
	ExpirationDate  *time.Time  `json:"expirationDate"`
	InitialQuantity int         `json:"initialQuantity"`
}

// ToMedicament converts the request to a domain medicament.
func (r CreateMedicamentRequest) ToMedicament() *catalog.Medicament {
	return &catalog.Medicament{
		Code:           r.Code,
		Name:           r.Name,
		Description:    r.Description,
		Category:       r.Category,
		Manufacturer:   r.Manufacturer,
		PurchasePrice:  r.PurchasePrice,
		SellingPrice:   r.SellingPrice,
		StockThreshold: r.StockThreshold,
		ExpirationDate: r.ExpirationDate,
	}
}

// UpdateMedicamentRequest for editing catalog fields. Stock quantity
// and active status are managed by their own endpoints.
type UpdateMedicamentRequest struct {
	Code           string      `json:"code"`
	Name           string      `json:"name" binding:"required"`
	Description    *string     `json:"description"`
	Category       *string     `json:"category"`
	Manufacturer   *string     `json:"manufacturer"`
	PurchasePrice  types.Money `json:"purchasePrice"`
	SellingPrice   types.Money `json:"sellingPrice"`
	StockThreshold int         `json:"stockThreshold"`
	ExpirationDate *time.Time  `json:"expirationDate"`
}

// ToMedicament converts the request to a domain medicament with the given ID.
func (r UpdateMedicamentRequest) ToMedicament(id int64) *catalog.Medicament {
	return &catalog.Medicament{
		ID:             id,
		Code:           r.Code,
		Name:           r.Name,
		Description:    r.Description,
		Category:       r.Category,
		Manufacturer:   r.Manufacturer,
		PurchasePrice:  r.PurchasePrice,
		SellingPrice:   r.SellingPrice,
		StockThreshold: r.StockThreshold,
		ExpirationDate: r.ExpirationDate,
	}
}
