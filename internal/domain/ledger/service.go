package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/tx"
	"pharmapos/internal/domain"
	"pharmapos/pkg/logger"
)

// Reservation is a stock check request for one medicament.
type Reservation struct {
	MedicamentID int64
	Quantity     int
}

// Service provides ledger operations. The low-level primitives
// (Reserve, Commit, Reverse) run on the caller's transaction; the
// operator entry points wrap themselves in one.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new ledger service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// Reserve locks the stock rows for all requested medicaments in
// ascending ID order and verifies active status and availability.
// Violations are collected across the whole cart so the caller sees
// every failing line, not just the first. Must be called inside a
// transaction; the locks hold until it ends.
func (s *Service) Reserve(ctx context.Context, items []Reservation) error {
	if len(items) == 0 {
		return nil
	}

	// Merge duplicate lines so a medicament appearing twice is checked
	// against its summed quantity.
	required := make(map[int64]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return apperror.NewValidation("reservation quantity must be positive").
				WithDetail("medicament_id", item.MedicamentID)
		}
		required[item.MedicamentID] += item.Quantity
	}

	ids := make([]int64, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	balances, err := s.repo.LockBalances(ctx, ids)
	if err != nil {
		return fmt.Errorf("lock balances: %w", err)
	}

	byID := make(map[int64]StockBalance, len(balances))
	for _, b := range balances {
		byID[b.MedicamentID] = b
	}

	var violations []*apperror.AppError
	for _, id := range ids {
		balance, ok := byID[id]
		switch {
		case !ok:
			violations = append(violations, apperror.NewNotFound("medicament", id))
		case !balance.IsActive:
			violations = append(violations, apperror.NewMedicamentInactive(id))
		case balance.Quantity < required[id]:
			violations = append(violations, apperror.NewInsufficientStock(id, required[id], balance.Quantity))
		}
	}

	switch len(violations) {
	case 0:
		return nil
	case 1:
		return violations[0]
	default:
		details := make([]map[string]any, 0, len(violations))
		for _, v := range violations {
			detail := map[string]any{"code": v.Code}
			for k, val := range v.Details {
				detail[k] = val
			}
			details = append(details, detail)
		}
		return apperror.NewValidation("cart validation failed").
			WithDetail("violations", details)
	}
}

// Commit appends a movement and shifts the cached quantity in the same
// transaction. Must be called inside a transaction.
func (s *Service) Commit(ctx context.Context, m *StockMovement) (*StockMovement, error) {
	if err := m.Validate(ctx); err != nil {
		return nil, err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("insert movement: %w", err)
	}

	newQty, err := s.repo.ApplyDelta(ctx, m.MedicamentID, m.Delta())
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock movement committed",
		"movement_id", m.ID,
		"medicament_id", m.MedicamentID,
		"type", m.MovementType,
		"delta", m.Delta(),
		"quantity_in_stock", newQty,
	)

	return m, nil
}

// Reverse appends a compensating movement for an existing one and
// shifts the cached quantity back. The unique constraint on reversal_of
// rejects a second reversal of the same movement. Must be called inside
// a transaction.
func (s *Service) Reverse(ctx context.Context, movementID int64, userID *int64, reason string) (*StockMovement, error) {
	original, err := s.repo.GetByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if original.ReversalOf != nil {
		return nil, apperror.NewValidation("cannot reverse a reversal").
			WithDetail("movement_id", movementID)
	}

	compensating := &StockMovement{
		MedicamentID: original.MedicamentID,
		Quantity:     original.Quantity,
		UserID:       userID,
		SaleID:       original.SaleID,
		ReversalOf:   &original.ID,
	}
	if reason != "" {
		compensating.Reason = &reason
	}

	switch original.MovementType {
	case TypeEntry:
		compensating.MovementType = TypeExit
	case TypeExit:
		compensating.MovementType = TypeEntry
	case TypeAdjustment:
		compensating.MovementType = TypeAdjustment
		compensating.Quantity = -original.Quantity
	}

	return s.Commit(ctx, compensating)
}

// --- Operator entry points ---

// AddStock records a delivery.
func (s *Service) AddStock(ctx context.Context, medicamentID int64, quantity int, reason string, userID *int64) (*StockMovement, error) {
	return s.record(ctx, medicamentID, TypeEntry, quantity, reason, userID)
}

// RemoveStock records a manual removal (breakage, theft, recall).
func (s *Service) RemoveStock(ctx context.Context, medicamentID int64, quantity int, reason string, userID *int64) (*StockMovement, error) {
	return s.record(ctx, medicamentID, TypeExit, quantity, reason, userID)
}

// AdjustStock records a signed recount correction.
func (s *Service) AdjustStock(ctx context.Context, medicamentID int64, delta int, reason string, userID *int64) (*StockMovement, error) {
	return s.record(ctx, medicamentID, TypeAdjustment, delta, reason, userID)
}

func (s *Service) record(ctx context.Context, medicamentID int64, movementType MovementType, quantity int, reason string, userID *int64) (*StockMovement, error) {
	m := &StockMovement{
		MedicamentID: medicamentID,
		MovementType: movementType,
		Quantity:     quantity,
		UserID:       userID,
	}
	if reason != "" {
		m.Reason = &reason
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.Commit(ctx, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ReverseMovement reverses a single movement in its own transaction.
func (s *Service) ReverseMovement(ctx context.Context, movementID int64, userID *int64, reason string) (*StockMovement, error) {
	var reversed *StockMovement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		reversed, err = s.Reverse(ctx, movementID, userID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reversed, nil
}

// Rebuild recomputes the cached quantity of one medicament from the
// ledger. Locks the stock row so concurrent sales cannot interleave.
func (s *Service) Rebuild(ctx context.Context, medicamentID int64) (int, error) {
	var quantity int
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockBalances(ctx, []int64{medicamentID}); err != nil {
			return fmt.Errorf("lock balance: %w", err)
		}

		sum, err := s.repo.SumDeltas(ctx, medicamentID)
		if err != nil {
			return fmt.Errorf("sum deltas: %w", err)
		}
		if sum < 0 {
			return apperror.NewConstraintViolation("stock_non_negative").
				WithDetail("medicament_id", medicamentID).
				WithDetail("ledger_sum", sum)
		}

		quantity = sum
		return s.repo.SetQuantity(ctx, medicamentID, sum)
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "stock quantity rebuilt",
		"medicament_id", medicamentID,
		"quantity_in_stock", quantity,
	)
	return quantity, nil
}

// History retrieves movements for one medicament, newest first.
func (s *Service) History(ctx context.Context, medicamentID int64, filter domain.ListFilter) (domain.ListResult[*StockMovement], error) {
	return s.repo.ListByMedicament(ctx, medicamentID, filter.Normalize())
}

// MovementsSince retrieves movements created at or after the given time.
func (s *Service) MovementsSince(ctx context.Context, since time.Time, filter domain.ListFilter) (domain.ListResult[*StockMovement], error) {
	return s.repo.ListSince(ctx, since, filter.Normalize())
}

// MovementsBySale retrieves all movements linked to a sale.
func (s *Service) MovementsBySale(ctx context.Context, saleID int64) ([]*StockMovement, error) {
	return s.repo.ListBySale(ctx, saleID)
}
