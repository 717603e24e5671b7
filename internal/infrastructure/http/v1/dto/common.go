// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"pharmapos/internal/domain"
)

// --- List query ---

// ListQuery contains common list parameters bound from the query string.
type ListQuery struct {
	Search          string `form:"search"`
	IncludeInactive bool   `form:"includeInactive"`
	OrderBy         string `form:"orderBy"`
	Limit           int    `form:"limit"`
	Offset          int    `form:"offset"`
}

// ToFilter converts query parameters to a domain list filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	return domain.ListFilter{
		Search:          q.Search,
		IncludeInactive: q.IncludeInactive,
		OrderBy:         q.OrderBy,
		Limit:           q.Limit,
		Offset:          q.Offset,
	}.Normalize()
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID int64 `json:"id"`
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
