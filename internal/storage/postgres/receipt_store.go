package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/storage"
)

// ReceiptStore implements storage.ReceiptStore using PostgreSQL.
// It is read-only; receipt writes go through the transactional Ledger.
type ReceiptStore struct {
	pool *Pool
}

// NewReceiptStore creates a new ReceiptStore.
func NewReceiptStore(pool *Pool) *ReceiptStore {
	return &ReceiptStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReceiptStore = (*ReceiptStore)(nil)

const receiptColumns = `
	receipt_id, pool_id, buyer, amount_purchased, amount_claimed,
	claimed, first_purchase_at, claimed_at
`

// Get retrieves the receipt for (pool, buyer). Returns ErrNotFound if not exists.
func (s *ReceiptStore) Get(ctx context.Context, poolID, buyer string) (*domain.PurchaseReceipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM purchase_receipts WHERE pool_id = $1 AND buyer = $2`

	row := s.pool.QueryRow(ctx, query, poolID, buyer)
	r, err := scanReceipt(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return r, nil
}

// GetByPool retrieves all receipts for a pool, ordered by first_purchase_at ASC.
func (s *ReceiptStore) GetByPool(ctx context.Context, poolID string) ([]*domain.PurchaseReceipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM purchase_receipts WHERE pool_id = $1 ORDER BY first_purchase_at ASC, buyer ASC`

	rows, err := s.pool.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("get receipts by pool: %w", err)
	}
	defer rows.Close()

	var receipts []*domain.PurchaseReceipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt row: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipt rows: %w", err)
	}

	return receipts, nil
}

// scanReceipt scans a single row into a PurchaseReceipt.
func scanReceipt(row pgx.Row) (*domain.PurchaseReceipt, error) {
	var r domain.PurchaseReceipt
	var purchased, claimed int64

	err := row.Scan(
		&r.ReceiptID,
		&r.PoolID,
		&r.Buyer,
		&purchased,
		&claimed,
		&r.Claimed,
		&r.FirstPurchaseAt,
		&r.ClaimedAt,
	)
	if err != nil {
		return nil, err
	}

	r.AmountPurchased = uint64(purchased)
	r.AmountClaimed = uint64(claimed)
	return &r, nil
}
