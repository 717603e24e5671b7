package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"pharmapos/internal/domain/sale"
)

// Audit event types.
const (
	EventDiscountOverride = "discount_override"
)

// CompressionAlgo specifies the compression algorithm used for a payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is one row of the sys_audit table.
type AuditEntry struct {
	ID                int64           `db:"id"`
	EventType         string          `db:"event_type"`
	ReferenceID       *int64          `db:"reference_id"`
	UserID            *int64          `db:"user_id"`
	Payload           json.RawMessage `db:"payload"`
	PayloadCompressed []byte          `db:"payload_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditStore persists audit events. It writes through the caller's
// transaction, so an event recorded alongside a sale commits or rolls
// back with it. Large payloads are zstd-compressed.
type AuditStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditStore creates a new audit store.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

var _ sale.AuditRecorder = (*AuditStore)(nil)

// RecordDiscountOverride persists a manual discount event in the same
// transaction as the sale it belongs to.
func (s *AuditStore) RecordDiscountOverride(ctx context.Context, e sale.DiscountOverrideEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return s.insert(ctx, AuditEntry{
		EventType:   EventDiscountOverride,
		ReferenceID: &e.SaleID,
		UserID:      &e.OperatorID,
		Payload:     payload,
		CreatedAt:   e.OccurredAt,
	})
}

func (s *AuditStore) insert(ctx context.Context, entry AuditEntry) error {
	entry.CompressionAlgo = CompressionNone
	if len(entry.Payload) > s.compressThreshold {
		entry.PayloadCompressed = s.encoder.EncodeAll(entry.Payload, nil)
		entry.Payload = nil
		entry.CompressionAlgo = CompressionZstd
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	sql := `
		INSERT INTO sys_audit (
			event_type, reference_id, user_id,
			payload, payload_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		entry.EventType, entry.ReferenceID, entry.UserID,
		entry.Payload, entry.PayloadCompressed, entry.CompressionAlgo,
		entry.CreatedAt,
	)
	if err != nil {
		return MapError(err, "audit entry")
	}

	return nil
}

// History retrieves audit entries for an event type, newest first,
// decompressing payloads as needed.
func (s *AuditStore) History(ctx context.Context, eventType string, limit int) ([]AuditEntry, error) {
	sql := `
		SELECT id, event_type, reference_id, user_id,
		       payload, payload_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE event_type = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, eventType, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		err := rows.Scan(
			&e.ID, &e.EventType, &e.ReferenceID, &e.UserID,
			&e.Payload, &e.PayloadCompressed, &e.CompressionAlgo, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.PayloadCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(e.PayloadCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress payload: %w", err)
			}
			e.Payload = decompressed
			e.PayloadCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
