package catalog

import (
	"context"
	"fmt"
	"time"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/tx"
	"pharmapos/internal/domain"
	"pharmapos/internal/domain/ledger"
	"pharmapos/pkg/logger"
	"pharmapos/pkg/numerator"
)

// Service provides business logic for the medicament catalog.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	numerator *numerator.Service
	txManager tx.Manager
}

// NewService creates a new catalog service.
func NewService(repo Repository, ledgerSvc *ledger.Service, num *numerator.Service, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
		numerator: num,
		txManager: txManager,
	}
}

// Create inserts a new medicament. A positive initial quantity is
// recorded as an entry movement so the ledger accounts for every unit
// from the start.
func (s *Service) Create(ctx context.Context, m *Medicament, initialQuantity int, userID *int64) error {
	m.QuantityInStock = 0
	m.IsActive = true

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	if m.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx,
			numerator.Config{Prefix: "MED", PadWidth: 5, ResetPeriod: "never"},
			&numerator.Options{Strategy: numerator.StrategyCached},
			time.Now(),
		)
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		m.Code = code
	}

	if err := m.Validate(ctx); err != nil {
		return err
	}
	if initialQuantity < 0 {
		return apperror.NewValidation("initial quantity cannot be negative").
			WithDetail("field", "initialQuantity")
	}

	exists, err := s.repo.ExistsByCode(ctx, m.Code, 0)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewDuplicate("medicament", "code", m.Code)
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, m); err != nil {
			return err
		}

		if initialQuantity > 0 {
			reason := "initial stock"
			_, err := s.ledger.Commit(ctx, &ledger.StockMovement{
				MedicamentID: m.ID,
				MovementType: ledger.TypeEntry,
				Quantity:     initialQuantity,
				Reason:       &reason,
				UserID:       userID,
			})
			if err != nil {
				return err
			}
			m.QuantityInStock = initialQuantity
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "medicament created",
		"medicament_id", m.ID,
		"code", m.Code,
		"initial_quantity", initialQuantity,
	)
	return nil
}

// GetByCode retrieves a medicament by code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Medicament, error) {
	return s.repo.GetByCode(ctx, code)
}

// Get retrieves a medicament by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Medicament, error) {
	return s.repo.GetByID(ctx, id)
}

// Update modifies catalog fields (name, description, prices, threshold,
// expiration). Stock quantity is owned by the ledger and ignored here.
func (s *Service) Update(ctx context.Context, m *Medicament) error {
	current, err := s.repo.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	m.QuantityInStock = current.QuantityInStock
	m.IsActive = current.IsActive
	if m.Code == "" {
		m.Code = current.Code
	}
	m.CreatedAt = current.CreatedAt
	m.UpdatedAt = time.Now().UTC()

	if err := m.Validate(ctx); err != nil {
		return err
	}

	exists, err := s.repo.ExistsByCode(ctx, m.Code, m.ID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewDuplicate("medicament", "code", m.Code)
	}

	return s.repo.Update(ctx, m)
}

// Deactivate soft-deletes a medicament. History and stock stay intact;
// the medicament just cannot be sold anymore.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !m.IsActive {
		return nil
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	logger.Info(ctx, "medicament deactivated", "medicament_id", id)
	return nil
}

// Reactivate clears the soft-delete flag.
func (s *Service) Reactivate(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, true)
}

// List retrieves medicaments with filtering and pagination.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Medicament], error) {
	return s.repo.List(ctx, filter.Normalize())
}

// FindLowStock retrieves active medicaments at or below their threshold.
func (s *Service) FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Medicament], error) {
	return s.repo.FindLowStock(ctx, filter.Normalize())
}

// FindExpiringSoon retrieves active medicaments expiring within the
// given number of days.
func (s *Service) FindExpiringSoon(ctx context.Context, days int, filter domain.ListFilter) (domain.ListResult[*Medicament], error) {
	return s.repo.FindExpiringSoon(ctx, days, filter.Normalize())
}
