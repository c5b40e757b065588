package memory

import (
	"context"
	"sort"
	"sync"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/storage"
)

// AuditEventStore is an in-memory implementation of storage.AuditEventStore.
type AuditEventStore struct {
	mu     sync.RWMutex
	events []*domain.AuditEvent
}

// NewAuditEventStore creates a new in-memory audit event store.
func NewAuditEventStore() *AuditEventStore {
	return &AuditEventStore{}
}

// Insert appends an audit event.
func (s *AuditEventStore) Insert(_ context.Context, e *domain.AuditEvent) error {
	if e == nil || e.EventType == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *e
	s.events = append(s.events, &copy)
	return nil
}

// GetByPool retrieves all events for a pool, ordered by timestamp ASC.
func (s *AuditEventStore) GetByPool(_ context.Context, poolID string) ([]*domain.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AuditEvent
	for _, e := range s.events {
		if e.PoolID == poolID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sortEvents(result)
	return result, nil
}

// GetByTimeRange retrieves events within [start, end] (inclusive).
func (s *AuditEventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AuditEvent
	for _, e := range s.events {
		if e.Timestamp >= start && e.Timestamp <= end {
			copy := *e
			result = append(result, &copy)
		}
	}

	sortEvents(result)
	return result, nil
}

func sortEvents(events []*domain.AuditEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
}

var _ storage.AuditEventStore = (*AuditEventStore)(nil)
