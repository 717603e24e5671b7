package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/tx"
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain"
	"pharmapos/internal/domain/catalog"
	"pharmapos/internal/domain/client"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/domain/loyalty"
	"pharmapos/pkg/logger"
	"pharmapos/pkg/numerator"
)

// conflictRetries bounds optimistic retries on transaction conflicts.
const conflictRetries = 3

// LineRequest is one cart line.
type LineRequest struct {
	MedicamentID int64 `json:"medicamentId"`
	Quantity     int   `json:"quantity"`
}

// ProcessRequest is the full input for one sale.
type ProcessRequest struct {
	ClientID   *int64        `json:"clientId,omitempty"`
	OperatorID int64         `json:"-"`
	Lines      []LineRequest `json:"lines"`

	// PointsToRedeem spends loyalty points against the total.
	PointsToRedeem int `json:"pointsToRedeem"`

	// ManualDiscountPct replaces the tier discount when set. Operator
	// overrides are audit-logged.
	ManualDiscountPct *types.Money `json:"manualDiscountPct,omitempty"`
}

// Processor orchestrates pricing, stock commitment, and loyalty
// settlement for sales.
type Processor struct {
	sales       Repository
	medicaments catalog.Repository
	clients     client.Repository
	loyalty     *loyalty.Engine
	ledger      *ledger.Service
	numerator   *numerator.Service
	audit       AuditRecorder
	txManager   tx.Manager
}

// NewProcessor creates a sale processor.
func NewProcessor(
	sales Repository,
	medicaments catalog.Repository,
	clients client.Repository,
	loyaltyEngine *loyalty.Engine,
	ledgerSvc *ledger.Service,
	num *numerator.Service,
	audit AuditRecorder,
	txManager tx.Manager,
) *Processor {
	return &Processor{
		sales:       sales,
		medicaments: medicaments,
		clients:     clients,
		loyalty:     loyaltyEngine,
		ledger:      ledgerSvc,
		numerator:   num,
		audit:       audit,
		txManager:   txManager,
	}
}

// ProcessSale runs the full sale pipeline: validate the cart, price it,
// settle loyalty points, and commit everything atomically. Nothing is
// written unless every step succeeds. Transaction conflicts are retried
// a bounded number of times before surfacing to the caller.
func (p *Processor) ProcessSale(ctx context.Context, req ProcessRequest) (*Sale, error) {
	if err := p.validateRequest(req); err != nil {
		return nil, err
	}

	// The receipt number is allocated outside the transaction, the same
	// way catalog codes are: a rolled-back sale leaves a gap, never a
	// duplicate. Retries reuse the number.
	number, err := p.numerator.GetNextNumber(ctx, numerator.DefaultConfig("VNT"), nil, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate sale number: %w", err)
	}

	var result *Sale
	backoff := retry.WithMaxRetries(conflictRetries, retry.NewExponential(20*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		sale, err := p.processOnce(ctx, req, number)
		if err != nil {
			if apperror.IsTransactionConflict(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale processed",
		"sale_id", result.ID,
		"sale_number", result.SaleNumber,
		"total", result.TotalAmount,
		"points_earned", result.PointsEarned,
		"points_used", result.PointsUsed,
	)
	return result, nil
}

func (p *Processor) processOnce(ctx context.Context, req ProcessRequest, number string) (*Sale, error) {
	var sale *Sale
	err := p.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Lock stock rows in ID order and validate the whole cart before
		// writing anything.
		reservations := make([]ledger.Reservation, 0, len(req.Lines))
		for _, line := range req.Lines {
			reservations = append(reservations, ledger.Reservation{
				MedicamentID: line.MedicamentID,
				Quantity:     line.Quantity,
			})
		}
		if err := p.ledger.Reserve(ctx, reservations); err != nil {
			return err
		}

		// Snapshot prices. The rows are locked, so prices cannot move
		// under us within this sale.
		ids := make([]int64, 0, len(req.Lines))
		for _, line := range req.Lines {
			ids = append(ids, line.MedicamentID)
		}
		medicaments, err := p.medicaments.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[int64]*catalog.Medicament, len(medicaments))
		for _, m := range medicaments {
			byID[m.ID] = m
		}

		subtotal := decimal.Zero
		lines := make([]SaleLine, 0, len(req.Lines))
		for i, line := range req.Lines {
			m, ok := byID[line.MedicamentID]
			if !ok {
				return apperror.NewNotFound("medicament", line.MedicamentID)
			}
			lineTotal := types.RoundCurrency(m.SellingPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
			lines = append(lines, SaleLine{
				LineNo:       i + 1,
				MedicamentID: line.MedicamentID,
				Quantity:     line.Quantity,
				UnitPrice:    m.SellingPrice,
				LineTotal:    lineTotal,
			})
			subtotal = subtotal.Add(lineTotal)
		}

		// Lock the client after the stock rows; every path that touches
		// both keeps this order.
		var cl *client.Client
		if req.ClientID != nil {
			cl, err = p.clients.GetForUpdate(ctx, *req.ClientID)
			if err != nil {
				return err
			}
		}

		// Discount: manual override replaces the tier discount.
		var discountPct, discountAmount types.Money
		switch {
		case req.ManualDiscountPct != nil:
			discountPct = *req.ManualDiscountPct
			discountAmount = types.ApplyPercent(subtotal, discountPct)
		case cl != nil:
			tier, err := p.loyalty.ResolveTier(ctx, cl.LoyaltyPoints)
			if err != nil {
				return err
			}
			discountPct = tier.DiscountPercent
			discountAmount = p.loyalty.ComputeDiscount(subtotal, tier)
		}

		total := types.ClampNonNegative(subtotal.Sub(discountAmount))

		// Redemption value comes off after the discount; the floor at
		// zero means a redemption can never produce a negative total.
		var redemptionValue types.Money
		if req.PointsToRedeem > 0 {
			if cl == nil {
				return apperror.NewValidation("points redemption requires a client").
					WithDetail("field", "pointsToRedeem")
			}
			if err := p.loyalty.CheckRedemption(cl.ID, cl.LoyaltyPoints, req.PointsToRedeem); err != nil {
				return err
			}
			redemptionValue = p.loyalty.RedemptionValue(req.PointsToRedeem)
			total = types.ClampNonNegative(total.Sub(redemptionValue))
		}

		pointsEarned := 0
		if cl != nil {
			pointsEarned, err = p.loyalty.AccruePoints(total)
			if err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		for i := range lines {
			lines[i].CreatedAt = now
		}
		sale = &Sale{
			SaleNumber:         number,
			ClientID:           req.ClientID,
			UserID:             req.OperatorID,
			SaleDate:           now,
			Subtotal:           subtotal,
			DiscountPercentage: discountPct,
			DiscountAmount:     discountAmount,
			PointsUsed:         req.PointsToRedeem,
			RedemptionValue:    redemptionValue,
			TotalAmount:        total,
			PointsEarned:       pointsEarned,
			Status:             StatusCompleted,
			CreatedAt:          now,
			UpdatedAt:          now,
			Lines:              lines,
		}
		if err := sale.Validate(ctx); err != nil {
			return err
		}
		if err := p.sales.Insert(ctx, sale); err != nil {
			return err
		}

		// One exit movement per line, referencing the sale.
		operatorID := req.OperatorID
		for _, line := range sale.Lines {
			reason := "sale " + sale.SaleNumber
			_, err := p.ledger.Commit(ctx, &ledger.StockMovement{
				MedicamentID: line.MedicamentID,
				MovementType: ledger.TypeExit,
				Quantity:     line.Quantity,
				Reason:       &reason,
				UserID:       &operatorID,
				SaleID:       &sale.ID,
			})
			if err != nil {
				return err
			}
		}

		if cl != nil {
			delta := pointsEarned - req.PointsToRedeem
			if err := p.clients.AdjustBalance(ctx, cl.ID, delta, total); err != nil {
				return err
			}
		}

		if req.ManualDiscountPct != nil {
			event := DiscountOverrideEvent{
				SaleID:             sale.ID,
				SaleNumber:         sale.SaleNumber,
				OperatorID:         req.OperatorID,
				ClientID:           req.ClientID,
				DiscountPercentage: discountPct.String(),
				DiscountAmount:     discountAmount.String(),
				Subtotal:           subtotal.String(),
				OccurredAt:         time.Now().UTC(),
			}
			if err := p.audit.RecordDiscountOverride(ctx, event); err != nil {
				return fmt.Errorf("record discount override: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// validateRequest checks request shape before touching storage,
// collecting every failing line.
func (p *Processor) validateRequest(req ProcessRequest) error {
	if req.OperatorID <= 0 {
		return apperror.NewValidation("operator is required").
			WithDetail("field", "operatorId")
	}
	if len(req.Lines) == 0 {
		return apperror.NewValidation("sale must have at least one line").
			WithDetail("field", "lines")
	}

	var badLines []int
	for i, line := range req.Lines {
		if line.MedicamentID <= 0 || line.Quantity <= 0 {
			badLines = append(badLines, i+1)
		}
	}
	if len(badLines) > 0 {
		return apperror.NewValidation("lines must reference a medicament with positive quantity").
			WithDetail("lineNos", badLines)
	}

	if req.PointsToRedeem < 0 {
		return apperror.NewValidation("points to redeem cannot be negative").
			WithDetail("field", "pointsToRedeem")
	}
	if req.ManualDiscountPct != nil {
		pct := *req.ManualDiscountPct
		if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return apperror.NewInvalidDiscount("manual discount must be between 0 and 100").
				WithDetail("value", pct.String())
		}
	}
	return nil
}

// --- Read side ---

// Get retrieves a sale with its lines.
func (p *Processor) Get(ctx context.Context, id int64) (*Sale, error) {
	return p.sales.GetByID(ctx, id)
}

// GetByNumber retrieves a sale by receipt number.
func (p *Processor) GetByNumber(ctx context.Context, number string) (*Sale, error) {
	return p.sales.GetByNumber(ctx, number)
}

// List retrieves sales, newest first.
func (p *Processor) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Sale], error) {
	return p.sales.List(ctx, filter.Normalize())
}

// ListByClient retrieves a client's sales, newest first.
func (p *Processor) ListByClient(ctx context.Context, clientID int64, filter domain.ListFilter) (domain.ListResult[*Sale], error) {
	return p.sales.ListByClient(ctx, clientID, filter.Normalize())
}

// ListToday retrieves sales created today in the given location.
func (p *Processor) ListToday(ctx context.Context, now time.Time, filter domain.ListFilter) (domain.ListResult[*Sale], error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return p.sales.ListBetween(ctx, start, start.AddDate(0, 0, 1), filter.Normalize())
}
