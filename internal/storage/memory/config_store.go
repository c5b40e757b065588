package memory

import (
	"context"
	"sync"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/storage"
)

// ConfigStore is an in-memory implementation of storage.ConfigStore.
type ConfigStore struct {
	mu     sync.RWMutex
	config *domain.PlatformConfig
}

// NewConfigStore creates a new in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{}
}

// Init stores the platform config. Returns ErrDuplicateKey if already initialized.
func (s *ConfigStore) Init(_ context.Context, c *domain.PlatformConfig) error {
	if c == nil || c.Owner == "" || c.Creator == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config != nil {
		return storage.ErrDuplicateKey
	}

	copy := *c
	s.config = &copy
	return nil
}

// Get retrieves the platform config. Returns ErrNotFound before initialization.
func (s *ConfigStore) Get(_ context.Context) (*domain.PlatformConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil, storage.ErrNotFound
	}

	copy := *s.config
	return &copy, nil
}

var _ storage.ConfigStore = (*ConfigStore)(nil)
