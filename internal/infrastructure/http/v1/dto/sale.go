package dto

import (
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain/sale"
)

// SaleLineRequest is one cart line.
type SaleLineRequest struct {
	MedicamentID int64 `json:"medicamentId" binding:"required"`
	Quantity     int   `json:"quantity" binding:"required,min=1"`
}

// CreateSaleRequest is the full cart submitted at checkout. The
// operator comes from the authenticated context, not the body.
type CreateSaleRequest struct {
	ClientID          *int64            `json:"clientId"`
	Lines             []SaleLineRequest `json:"lines" binding:"required,min=1"`
	PointsToRedeem    int               `json:"pointsToRedeem"`
	ManualDiscountPct *types.Money      `json:"manualDiscountPct"`
}

// ToProcessRequest converts the request to a domain process request.
func (r CreateSaleRequest) ToProcessRequest(operatorID int64) sale.ProcessRequest {
	lines := make([]sale.LineRequest, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = sale.LineRequest{
			MedicamentID: l.MedicamentID,
			Quantity:     l.Quantity,
		}
	}
	return sale.ProcessRequest{
		ClientID:          r.ClientID,
		OperatorID:        operatorID,
		Lines:             lines,
		PointsToRedeem:    r.PointsToRedeem,
		ManualDiscountPct: r.ManualDiscountPct,
	}
}

// CancelSaleRequest for sale cancellations.
type CancelSaleRequest struct {
	Reason string `json:"reason" binding:"required"`
}
