package postgres

import (
	"context"
	"fmt"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/storage"
)

// ConfigStore implements storage.ConfigStore using PostgreSQL. The
// platform_config table holds a single row enforced by its primary key.
type ConfigStore struct {
	pool *Pool
}

// NewConfigStore creates a new ConfigStore.
func NewConfigStore(pool *Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ConfigStore = (*ConfigStore)(nil)

// Init stores the platform config. Returns ErrDuplicateKey if already initialized.
func (s *ConfigStore) Init(ctx context.Context, c *domain.PlatformConfig) error {
	query := `
		INSERT INTO platform_config (singleton, owner_address, creator_address, initialized_at)
		VALUES (TRUE, $1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, c.Owner, c.Creator, c.InitializedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("init platform config: %w", err)
	}
	return nil
}

// Get retrieves the platform config. Returns ErrNotFound before initialization.
func (s *ConfigStore) Get(ctx context.Context) (*domain.PlatformConfig, error) {
	query := `SELECT owner_address, creator_address, initialized_at FROM platform_config WHERE singleton`

	var c domain.PlatformConfig
	err := s.pool.QueryRow(ctx, query).Scan(&c.Owner, &c.Creator, &c.InitializedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get platform config: %w", err)
	}
	return &c, nil
}
