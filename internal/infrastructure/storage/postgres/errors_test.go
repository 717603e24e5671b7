package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/internal/core/apperror"
)

func pgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{Code: code, ConstraintName: constraint}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "unique violation",
			err:      pgError(pgerrcode.UniqueViolation, "medicaments_code_key"),
			wantCode: apperror.CodeDuplicate,
		},
		{
			name:     "double reversal unique violation",
			err:      pgError(pgerrcode.UniqueViolation, "stock_movements_reversal_of_key"),
			wantCode: apperror.CodeAlreadyReversed,
		},
		{
			name:     "foreign key violation",
			err:      pgError(pgerrcode.ForeignKeyViolation, "sale_items_sale_id_fkey"),
			wantCode: apperror.CodeConstraintViolation,
		},
		{
			name:     "stock check violation",
			err:      pgError(pgerrcode.CheckViolation, "medicaments_quantity_in_stock_check"),
			wantCode: apperror.CodeConstraintViolation,
		},
		{
			name:     "points check violation",
			err:      pgError(pgerrcode.CheckViolation, "clients_loyalty_points_check"),
			wantCode: apperror.CodeConstraintViolation,
		},
		{
			name:     "serialization failure is retryable",
			err:      pgError(pgerrcode.SerializationFailure, ""),
			wantCode: apperror.CodeTransactionConflict,
		},
		{
			name:     "deadlock is retryable",
			err:      pgError(pgerrcode.DeadlockDetected, ""),
			wantCode: apperror.CodeTransactionConflict,
		},
		{
			name:     "lock timeout is retryable",
			err:      pgError(pgerrcode.LockNotAvailable, ""),
			wantCode: apperror.CodeTransactionConflict,
		},
		{
			name:     "query canceled is retryable",
			err:      pgError(pgerrcode.QueryCanceled, ""),
			wantCode: apperror.CodeTransactionConflict,
		},
		{
			name:     "unknown pg error maps to database",
			err:      pgError(pgerrcode.DiskFull, ""),
			wantCode: apperror.CodeDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err, "sale")
			require.Error(t, mapped)
			assert.True(t, apperror.IsCode(mapped, tt.wantCode), "got %v, want %s", mapped, tt.wantCode)
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	assert.NoError(t, MapError(nil, "sale"))

	plain := errors.New("context canceled")
	assert.Equal(t, plain, MapError(plain, "sale"))

	appErr := apperror.NewNotFound("sale", 1)
	assert.Equal(t, error(appErr), MapError(appErr, "sale"))
}

func TestParseOrderBy(t *testing.T) {
	cols := []string{"name", "created_at", "code"}

	tests := []struct {
		orderBy string
		want    string
		wantErr bool
	}{
		{"", "name ASC", false},
		{"name", "name ASC", false},
		{"+code", "code ASC", false},
		{"-created_at", "created_at DESC", false},
		{"quantity; DROP TABLE medicaments", "", true},
		{"unknown", "", true},
		{"-", "", true},
	}

	for _, tt := range tests {
		got, err := parseOrderBy(tt.orderBy, cols, "name ASC")
		if tt.wantErr {
			assert.Error(t, err, "orderBy %q", tt.orderBy)
			continue
		}
		require.NoError(t, err, "orderBy %q", tt.orderBy)
		assert.Equal(t, tt.want, got)
	}
}
