package identity

import (
	"context"
	"errors"
	"fmt"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/storage"
)

// ConfigAuthorizer resolves roles against the stored platform config.
// The owner holds every role; the creator holds only RoleCreator.
type ConfigAuthorizer struct {
	configs storage.ConfigStore
}

func NewConfigAuthorizer(configs storage.ConfigStore) *ConfigAuthorizer {
	return &ConfigAuthorizer{configs: configs}
}

func (a *ConfigAuthorizer) IsAuthorized(ctx context.Context, identity, role string) (bool, error) {
	cfg, err := a.configs.Get(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Platform not initialized yet: nobody holds a role.
			return false, nil
		}
		return false, fmt.Errorf("load platform config: %w", err)
	}

	switch role {
	case domain.RoleOwner:
		return identity == cfg.Owner, nil
	case domain.RoleCreator:
		return identity == cfg.Creator || identity == cfg.Owner, nil
	default:
		return false, fmt.Errorf("unknown role %q", role)
	}
}

var _ Authorizer = (*ConfigAuthorizer)(nil)
