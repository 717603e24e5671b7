package client

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/domain"
	"pharmapos/pkg/logger"
	"pharmapos/pkg/numerator"
)

// Service provides client registry operations.
type Service struct {
	repo      Repository
	numerator *numerator.Service
}

// NewService creates a new client service.
func NewService(repo Repository, num *numerator.Service) *Service {
	return &Service{repo: repo, numerator: num}
}

// Create registers a new client with zero balances. A missing code is
// generated.
func (s *Service) Create(ctx context.Context, c *Client) error {
	c.LoyaltyPoints = 0
	c.TotalSpent = decimal.Zero
	c.IsActive = true

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if c.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx,
			numerator.Config{Prefix: "CLT", PadWidth: 5, ResetPeriod: "never"},
			&numerator.Options{Strategy: numerator.StrategyCached},
			time.Now(),
		)
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		c.Code = code
	}

	if err := c.Validate(ctx); err != nil {
		return err
	}

	exists, err := s.repo.ExistsByCode(ctx, c.Code, 0)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewDuplicate("client", "code", c.Code)
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return err
	}
	logger.Info(ctx, "client created", "client_id", c.ID, "code", c.Code)
	return nil
}

// Get retrieves a client by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByCode retrieves a client by code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Client, error) {
	return s.repo.GetByCode(ctx, code)
}

// Update modifies contact fields. Balances change only through the sale
// processor and cancellation handler, never through here.
func (s *Service) Update(ctx context.Context, c *Client) error {
	current, err := s.repo.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	c.Code = current.Code
	c.LoyaltyPoints = current.LoyaltyPoints
	c.TotalSpent = current.TotalSpent
	c.IsActive = current.IsActive
	c.UpdatedAt = time.Now().UTC()

	if err := c.Validate(ctx); err != nil {
		return err
	}
	return s.repo.Update(ctx, c)
}

// Delete removes a client.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// List retrieves clients with filtering and pagination.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Client], error) {
	return s.repo.List(ctx, filter.Normalize())
}
