package dto

// StockMovementRequest for manual stock operations. Quantity is
// strictly positive for entries and exits; adjustments take a signed
// delta instead.
type StockMovementRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// ReverseMovementRequest for compensating an existing movement.
type ReverseMovementRequest struct {
	Reason string `json:"reason"`
}

// RebuildResponse reports the recomputed cached quantity.
type RebuildResponse struct {
	MedicamentID    int64 `json:"medicamentId"`
	QuantityInStock int   `json:"quantityInStock"`
}
