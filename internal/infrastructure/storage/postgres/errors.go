package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"pharmapos/internal/core/apperror"
)

// Constraint names referenced in error mapping. Must match the schema.
const (
	constraintReversalOfUnique  = "stock_movements_reversal_of_key"
	constraintStockNonNegative  = "medicaments_quantity_in_stock_check"
	constraintPointsNonNegative = "clients_loyalty_points_check"
)

// MapError translates low-level PostgreSQL errors into domain errors.
// Non-PostgreSQL errors pass through unchanged.
func MapError(err error, entity string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if pgErr.ConstraintName == constraintReversalOfUnique {
			// Two concurrent cancellations raced on the same movement;
			// the loser lands here.
			return apperror.NewBusinessRule(apperror.CodeAlreadyReversed, "stock movement is already reversed").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
		return apperror.NewDuplicate(entity, pgErr.ConstraintName, pgErr.Detail).WithCause(err)

	case pgerrcode.ForeignKeyViolation:
		return apperror.NewConstraintViolation(pgErr.ConstraintName).WithCause(err)

	case pgerrcode.CheckViolation:
		switch pgErr.ConstraintName {
		case constraintStockNonNegative:
			return apperror.NewConstraintViolation("stock quantity cannot go negative").WithCause(err)
		case constraintPointsNonNegative:
			return apperror.NewConstraintViolation("loyalty points cannot go negative").WithCause(err)
		}
		return apperror.NewConstraintViolation(pgErr.ConstraintName).WithCause(err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return apperror.NewTransactionConflict(entity, pgErr.ConstraintName).WithCause(err)

	case pgerrcode.LockNotAvailable, pgerrcode.QueryCanceled:
		// statement_timeout fires as QueryCanceled; a blocked row lock
		// that exceeds it is retryable the same way a deadlock is.
		return apperror.NewTransactionConflict(entity, "lock timeout").WithCause(err)
	}

	return apperror.NewDatabase(err)
}
