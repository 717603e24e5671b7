package dto

import (
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain/loyalty"
)

// UpdateTierRequest for editing a loyalty tier.
type UpdateTierRequest struct {
	Name            string      `json:"name" binding:"required"`
	MinPoints       int         `json:"minPoints"`
	DiscountPercent types.Money `json:"discountPercentage"`
	Description     *string     `json:"description"`
	IsActive        bool        `json:"isActive"`
}

// ToTier converts the request to a domain tier with the given ID.
func (r UpdateTierRequest) ToTier(id int64) *loyalty.Tier {
	return &loyalty.Tier{
		ID:              id,
		Name:            r.Name,
		MinPoints:       r.MinPoints,
		DiscountPercent: r.DiscountPercent,
		Description:     r.Description,
		IsActive:        r.IsActive,
	}
}
