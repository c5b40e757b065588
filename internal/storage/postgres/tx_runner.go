package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/storage"
)

// TxRunner implements storage.TxRunner on a pgx transaction. The pool
// row is locked FOR UPDATE on first read, which serializes every
// supply-check-then-increment against the same pool while leaving other
// pools and other buyers' receipts fully concurrent.
type TxRunner struct {
	pool *Pool
}

// NewTxRunner creates a new TxRunner.
func NewTxRunner(pool *Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Compile-time interface check.
var _ storage.TxRunner = (*TxRunner)(nil)

// WithinTx runs fn inside one database transaction, committing only
// when fn returns nil.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Ledger) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(ctx, &ledgerTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ledgerTx implements storage.Ledger over an open pgx transaction.
type ledgerTx struct {
	tx pgx.Tx
}

var _ storage.Ledger = (*ledgerTx)(nil)

// GetPoolForUpdate loads and row-locks a pool. Returns ErrNotFound if not exists.
func (l *ledgerTx) GetPoolForUpdate(ctx context.Context, poolID string) (*domain.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE pool_id = $1 FOR UPDATE`

	p, err := scanPool(l.tx.QueryRow(ctx, query, poolID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool for update: %w", err)
	}
	return p, nil
}

// SavePool persists a mutated pool. Only supply_sold ever changes after
// creation; the remaining columns are immutable by design of the ledger.
func (l *ledgerTx) SavePool(ctx context.Context, p *domain.Pool) error {
	query := `UPDATE pools SET supply_sold = $2 WHERE pool_id = $1`

	tag, err := l.tx.Exec(ctx, query, p.PoolID, int64(p.SupplySold))
	if err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetReceiptForUpdate loads and row-locks the (pool, buyer) receipt.
func (l *ledgerTx) GetReceiptForUpdate(ctx context.Context, poolID, buyer string) (*domain.PurchaseReceipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM purchase_receipts WHERE pool_id = $1 AND buyer = $2 FOR UPDATE`

	r, err := scanReceipt(l.tx.QueryRow(ctx, query, poolID, buyer))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get receipt for update: %w", err)
	}
	return r, nil
}

// SaveReceipt inserts or updates a receipt.
func (l *ledgerTx) SaveReceipt(ctx context.Context, r *domain.PurchaseReceipt) error {
	query := `
		INSERT INTO purchase_receipts (
			receipt_id, pool_id, buyer, amount_purchased, amount_claimed,
			claimed, first_purchase_at, claimed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (pool_id, buyer) DO UPDATE SET
			amount_purchased = EXCLUDED.amount_purchased,
			amount_claimed   = EXCLUDED.amount_claimed,
			claimed          = EXCLUDED.claimed,
			claimed_at       = EXCLUDED.claimed_at
	`

	_, err := l.tx.Exec(ctx, query,
		r.ReceiptID,
		r.PoolID,
		r.Buyer,
		int64(r.AmountPurchased),
		int64(r.AmountClaimed),
		r.Claimed,
		r.FirstPurchaseAt,
		r.ClaimedAt,
	)
	if err != nil {
		return fmt.Errorf("save receipt: %w", err)
	}
	return nil
}
