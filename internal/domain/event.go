package domain

// AuditEvent records one successful ledger mutation for external
// logging and analytics. One event is emitted per transition; content
// mirrors what the ledger persisted.
// Corresponds to audit_events table in ClickHouse.
type AuditEvent struct {
	EventType      string // PLATFORM_INITIALIZED | POOL_CREATED | TOKEN_PURCHASED | TOKEN_CLAIMED
	PoolID         string // affected pool, empty for platform initialization
	Actor          string // base58 address that invoked the operation
	CurrencyAmount uint64 // currency paid (purchases only)
	TokenAmount    uint64 // sale tokens purchased/claimed/allocated
	Timestamp      int64  // unix seconds, ledger clock at commit
}

// Audit event types.
const (
	EventPlatformInitialized = "PLATFORM_INITIALIZED"
	EventPoolCreated         = "POOL_CREATED"
	EventTokenPurchased      = "TOKEN_PURCHASED"
	EventTokenClaimed        = "TOKEN_CLAIMED"
)
