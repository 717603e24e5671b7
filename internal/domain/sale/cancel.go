package sale

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/tx"
	"pharmapos/internal/domain/client"
	"pharmapos/internal/domain/ledger"
	"pharmapos/pkg/logger"
)

// CancellationHandler reverses committed sales: compensating ledger
// movements, loyalty reversal, and the status transition, all in one
// atomic unit. History is preserved; nothing is deleted.
type CancellationHandler struct {
	sales     Repository
	clients   client.Repository
	ledger    *ledger.Service
	txManager tx.Manager
}

// NewCancellationHandler creates a cancellation handler.
func NewCancellationHandler(
	sales Repository,
	clients client.Repository,
	ledgerSvc *ledger.Service,
	txManager tx.Manager,
) *CancellationHandler {
	return &CancellationHandler{
		sales:     sales,
		clients:   clients,
		ledger:    ledgerSvc,
		txManager: txManager,
	}
}

// CancelSale reverses a committed sale. Cancelling twice fails with
// SALE_ALREADY_CANCELLED and changes nothing. Transaction conflicts are
// retried; business failures are terminal.
func (h *CancellationHandler) CancelSale(ctx context.Context, saleID, operatorID int64, reason string) (*Sale, error) {
	if operatorID <= 0 {
		return nil, apperror.NewValidation("operator is required").
			WithDetail("field", "operatorId")
	}

	var result *Sale
	backoff := retry.WithMaxRetries(conflictRetries, retry.NewExponential(20*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		sale, err := h.cancelOnce(ctx, saleID, operatorID, reason)
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

	logger.Info(ctx, "sale cancelled",
		"sale_id", result.ID,
		"sale_number", result.SaleNumber,
		"cancelled_by", operatorID,
	)
	return result, nil
}

func (h *CancellationHandler) cancelOnce(ctx context.Context, saleID, operatorID int64, reason string) (*Sale, error) {
	var sale *Sale
	err := h.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		sale, err = h.sales.GetByIDForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.IsCancelled() {
			return apperror.NewAlreadyCancelled(saleID)
		}

		// Reverse every original movement of the sale. Reversals carry a
		// reference to their original, so a second pass could never
		// double-reverse even without the status guard.
		movements, err := h.ledger.MovementsBySale(ctx, saleID)
		if err != nil {
			return err
		}
		reverseReason := "cancellation of " + sale.SaleNumber
		if reason != "" {
			reverseReason = reverseReason + ": " + reason
		}
		for _, m := range movements {
			if m.ReversalOf != nil {
				continue
			}
			if _, err := h.ledger.Reverse(ctx, m.ID, &operatorID, reverseReason); err != nil {
				return err
			}
		}

		// Undo the loyalty effect: take back earned points, restore
		// redeemed ones, subtract the total from spending. Clamped at
		// zero so a balance spent elsewhere in the meantime cannot block
		// the cancellation.
		if sale.ClientID != nil {
			if _, err := h.clients.GetForUpdate(ctx, *sale.ClientID); err != nil {
				if apperror.IsNotFound(err) {
					// Client deleted since the sale; stock reversal stands.
					return h.markCancelled(ctx, sale, operatorID, reason)
				}
				return err
			}
			pointsDelta := sale.PointsUsed - sale.PointsEarned
			if err := h.clients.AdjustBalanceClamped(ctx, *sale.ClientID, pointsDelta, sale.TotalAmount.Neg()); err != nil {
				return err
			}
		}

		return h.markCancelled(ctx, sale, operatorID, reason)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (h *CancellationHandler) markCancelled(ctx context.Context, sale *Sale, operatorID int64, reason string) error {
	now := time.Now().UTC()
	if err := h.sales.MarkCancelled(ctx, sale.ID, operatorID, reason, now); err != nil {
		return err
	}
	sale.Status = StatusCancelled
	sale.CancelledAt = &now
	sale.CancelledBy = &operatorID
	if reason != "" {
		sale.CancelReason = &reason
	}
	return nil
}
