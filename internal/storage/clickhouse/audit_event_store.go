package clickhouse

import (
	"context"
	"fmt"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/storage"
)

// AuditEventStore implements storage.AuditEventStore using ClickHouse.
// Events are append-only; MergeTree uniqueness is not enforced and not
// needed since one event per transition is emitted inside the ledger.
type AuditEventStore struct {
	conn *Conn
}

// NewAuditEventStore creates a new AuditEventStore.
func NewAuditEventStore(conn *Conn) *AuditEventStore {
	return &AuditEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditEventStore = (*AuditEventStore)(nil)

// Insert appends an audit event.
func (s *AuditEventStore) Insert(ctx context.Context, e *domain.AuditEvent) error {
	query := `
		INSERT INTO audit_events (
			event_type, pool_id, actor, currency_amount, token_amount, timestamp
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		e.EventType,
		e.PoolID,
		e.Actor,
		e.CurrencyAmount,
		e.TokenAmount,
		e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// GetByPool retrieves all events for a pool, ordered by timestamp ASC.
func (s *AuditEventStore) GetByPool(ctx context.Context, poolID string) ([]*domain.AuditEvent, error) {
	query := `
		SELECT event_type, pool_id, actor, currency_amount, token_amount, timestamp
		FROM audit_events
		WHERE pool_id = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("get audit events by pool: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByTimeRange retrieves events within [start, end] (inclusive).
func (s *AuditEventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.AuditEvent, error) {
	query := `
		SELECT event_type, pool_id, actor, currency_amount, token_amount, timestamp
		FROM audit_events
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get audit events by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows chRows) ([]*domain.AuditEvent, error) {
	var events []*domain.AuditEvent

	for rows.Next() {
		var e domain.AuditEvent
		err := rows.Scan(
			&e.EventType,
			&e.PoolID,
			&e.Actor,
			&e.CurrencyAmount,
			&e.TokenAmount,
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event row: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit event rows: %w", err)
	}

	return events, nil
}
