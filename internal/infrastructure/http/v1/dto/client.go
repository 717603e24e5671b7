package dto

import (
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain/client"
)

// CreateClientRequest for registering a pharmacy client.
type CreateClientRequest struct {
	Code      string  `json:"code"`
	FirstName string  `json:"firstName" binding:"required"`
	LastName  string  `json:"lastName" binding:"required"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Address   *string `json:"address"`
}

// ToClient converts the request to a domain client.
func (r CreateClientRequest) ToClient() *client.Client {
	return &client.Client{
		Code:      r.Code,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Email:     r.Email,
		Address:   r.Address,
	}
}

// UpdateClientRequest for editing client details. Loyalty balances are
// settled by sales, never edited directly.
type UpdateClientRequest struct {
	Code      string  `json:"code"`
	FirstName string  `json:"firstName" binding:"required"`
	LastName  string  `json:"lastName" binding:"required"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Address   *string `json:"address"`
}

// ToClient converts the request to a domain client with the given ID.
func (r UpdateClientRequest) ToClient(id int64) *client.Client {
	return &client.Client{
		ID:        id,
		Code:      r.Code,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Email:     r.Email,
		Address:   r.Address,
	}
}

// LoyaltyStatusResponse is the resolved loyalty standing of one client.
type LoyaltyStatusResponse struct {
	ClientID        int64       `json:"clientId"`
	LoyaltyPoints   int         `json:"loyaltyPoints"`
	TotalSpent      types.Money `json:"totalSpent"`
	TierName        string      `json:"tierName"`
	DiscountPercent types.Money `json:"discountPercent"`
	NextTierName    *string     `json:"nextTierName,omitempty"`
	PointsToNext    *int        `json:"pointsToNext,omitempty"`
}
