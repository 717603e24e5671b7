package reports

import (
	"context"
	"time"

	"pharmapos/internal/domain"
	"pharmapos/internal/domain/client"
	"pharmapos/internal/domain/loyalty"
)

// Service assembles reports from the read repository and the loyalty
// engine.
type Service struct {
	repo         Repository
	clients      client.Repository
	loyalty      *loyalty.Engine
	expiringDays int
}

// NewService creates a reports service. expiringDays is the window used
// by the expiring-soon statistics.
func NewService(repo Repository, clients client.Repository, loyaltyEngine *loyalty.Engine, expiringDays int) *Service {
	if expiringDays <= 0 {
		expiringDays = 30
	}
	return &Service{
		repo:         repo,
		clients:      clients,
		loyalty:      loyaltyEngine,
		expiringDays: expiringDays,
	}
}

// DailySales summarizes one calendar day in the given location.
func (s *Service) DailySales(ctx context.Context, day time.Time) (*DailySales, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	summary, err := s.repo.DailySummary(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.Date = from
	return summary, nil
}

// DailySalesRows lists the day's sales with client and operator names.
func (s *Service) DailySalesRows(ctx context.Context, day time.Time) ([]SaleRow, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.repo.SalesBetween(ctx, from, from.AddDate(0, 0, 1))
}

// ClientTiers resolves the loyalty standing of each client.
func (s *Service) ClientTiers(ctx context.Context, filter domain.ListFilter) ([]ClientTier, error) {
	result, err := s.clients.List(ctx, filter.Normalize())
	if err != nil {
		return nil, err
	}

	rows := make([]ClientTier, 0, len(result.Items))
	for _, c := range result.Items {
		tier, err := s.loyalty.ResolveTier(ctx, c.LoyaltyPoints)
		if err != nil {
			return nil, err
		}
		row := ClientTier{
			ClientID:        c.ID,
			Code:            c.Code,
			Name:            c.FullName(),
			LoyaltyPoints:   c.LoyaltyPoints,
			TotalSpent:      c.TotalSpent,
			TierName:        tier.Name,
			DiscountPercent: tier.DiscountPercent,
		}
		next, needed, err := s.loyalty.NextTier(ctx, c.LoyaltyPoints)
		if err != nil {
			return nil, err
		}
		if next != nil {
			row.NextTierName = &next.Name
			row.PointsToNext = &needed
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// StockStats aggregates catalog counts and valuations.
func (s *Service) StockStats(ctx context.Context) (*StockStats, error) {
	return s.repo.StockStats(ctx, s.expiringDays)
}
