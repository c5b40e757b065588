package domain

// PlatformConfig holds the platform-level identities set once at
// initialization: the owner (administrator) and the identity allowed
// to create pools.
// Corresponds to platform_config table in PostgreSQL (single row).
type PlatformConfig struct {
	Owner         string // base58 address of the platform administrator
	Creator       string // base58 address authorized to create pools
	InitializedAt int64  // unix seconds
}

// Authorization roles checked against PlatformConfig.
const (
	RoleOwner   = "OWNER"
	RoleCreator = "CREATOR"
)
