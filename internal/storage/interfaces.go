package storage

import (
	"context"

	"solana-ido-ledger/internal/domain"
)

// PoolStore provides access to pools storage.
type PoolStore interface {
	// Insert adds a new pool. Returns ErrDuplicateKey if pool_id exists.
	Insert(ctx context.Context, p *domain.Pool) error

	// GetByID retrieves a pool by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, poolID string) (*domain.Pool, error)

	// GetBySaleAsset retrieves all pools selling a given asset.
	GetBySaleAsset(ctx context.Context, saleAsset string) ([]*domain.Pool, error)

	// List retrieves all pools ordered by created_at ASC.
	List(ctx context.Context) ([]*domain.Pool, error)
}

// ReceiptStore provides read access to purchase_receipts storage.
// Receipt writes only happen inside a Ledger transaction.
type ReceiptStore interface {
	// Get retrieves the receipt for (pool, buyer). Returns ErrNotFound if not exists.
	Get(ctx context.Context, poolID, buyer string) (*domain.PurchaseReceipt, error)

	// GetByPool retrieves all receipts for a pool, ordered by first_purchase_at ASC.
	GetByPool(ctx context.Context, poolID string) ([]*domain.PurchaseReceipt, error)
}

// ConfigStore provides access to the single platform_config record.
type ConfigStore interface {
	// Init stores the platform config. Returns ErrDuplicateKey if already initialized.
	Init(ctx context.Context, c *domain.PlatformConfig) error

	// Get retrieves the platform config. Returns ErrNotFound before initialization.
	Get(ctx context.Context) (*domain.PlatformConfig, error)
}

// AuditEventStore provides access to audit_events storage.
type AuditEventStore interface {
	// Insert appends an audit event.
	Insert(ctx context.Context, e *domain.AuditEvent) error

	// GetByPool retrieves all events for a pool, ordered by timestamp ASC.
	GetByPool(ctx context.Context, poolID string) ([]*domain.AuditEvent, error)

	// GetByTimeRange retrieves events within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.AuditEvent, error)
}

// Ledger is the transactional view over pools and receipts. Records
// loaded ForUpdate stay locked until the surrounding transaction ends,
// so a supply check followed by a save is a single atomic
// read-modify-write per pool.
type Ledger interface {
	// GetPoolForUpdate loads and locks a pool. Returns ErrNotFound if not exists.
	GetPoolForUpdate(ctx context.Context, poolID string) (*domain.Pool, error)

	// SavePool persists a mutated pool.
	SavePool(ctx context.Context, p *domain.Pool) error

	// GetReceiptForUpdate loads and locks the (pool, buyer) receipt.
	// Returns ErrNotFound if the buyer never purchased.
	GetReceiptForUpdate(ctx context.Context, poolID, buyer string) (*domain.PurchaseReceipt, error)

	// SaveReceipt inserts or updates a receipt.
	SaveReceipt(ctx context.Context, r *domain.PurchaseReceipt) error
}

// TxRunner executes fn inside one storage transaction. The mutations fn
// makes through the Ledger are committed together when fn returns nil
// and discarded entirely when it returns an error.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Ledger) error) error
}
