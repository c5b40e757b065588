package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/storage"
)

func insertTestReceipt(t *testing.T, runner *TxRunner, r *domain.PurchaseReceipt) {
	t.Helper()
	err := runner.WithinTx(context.Background(), func(ctx context.Context, tx storage.Ledger) error {
		return tx.SaveReceipt(ctx, r)
	})
	require.NoError(t, err)
}

func TestReceiptStore_Get(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	poolStore := NewPoolStore(pool)
	receiptStore := NewReceiptStore(pool)
	runner := NewTxRunner(pool)

	require.NoError(t, poolStore.Insert(ctx, createTestPool("pool-001")))
	insertTestReceipt(t, runner, &domain.PurchaseReceipt{
		ReceiptID:       "receipt-001",
		PoolID:          "pool-001",
		Buyer:           "BuyerAddr",
		AmountPurchased: 200,
		FirstPurchaseAt: 150,
	})

	r, err := receiptStore.Get(ctx, "pool-001", "BuyerAddr")
	require.NoError(t, err)
	assert.Equal(t, "receipt-001", r.ReceiptID)
	assert.Equal(t, "pool-001", r.PoolID)
	assert.Equal(t, "BuyerAddr", r.Buyer)
	assert.Equal(t, uint64(200), r.AmountPurchased)
	assert.Equal(t, uint64(0), r.AmountClaimed)
	assert.False(t, r.Claimed)
	assert.Equal(t, int64(150), r.FirstPurchaseAt)
	assert.Equal(t, int64(0), r.ClaimedAt)
}

func TestReceiptStore_Get_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	receiptStore := NewReceiptStore(pool)

	_, err := receiptStore.Get(context.Background(), "pool-001", "NoSuchBuyer")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReceiptStore_GetByPool(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	poolStore := NewPoolStore(pool)
	receiptStore := NewReceiptStore(pool)
	runner := NewTxRunner(pool)

	require.NoError(t, poolStore.Insert(ctx, createTestPool("pool-001")))
	require.NoError(t, poolStore.Insert(ctx, createTestPool("pool-002")))

	insertTestReceipt(t, runner, &domain.PurchaseReceipt{
		ReceiptID: "receipt-001", PoolID: "pool-001", Buyer: "BuyerA",
		AmountPurchased: 100, FirstPurchaseAt: 150,
	})
	insertTestReceipt(t, runner, &domain.PurchaseReceipt{
		ReceiptID: "receipt-002", PoolID: "pool-001", Buyer: "BuyerB",
		AmountPurchased: 300, FirstPurchaseAt: 160,
	})
	insertTestReceipt(t, runner, &domain.PurchaseReceipt{
		ReceiptID: "receipt-003", PoolID: "pool-002", Buyer: "BuyerA",
		AmountPurchased: 50, FirstPurchaseAt: 170,
	})

	receipts, err := receiptStore.GetByPool(ctx, "pool-001")
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	// Ordered by first purchase time.
	assert.Equal(t, "BuyerA", receipts[0].Buyer)
	assert.Equal(t, "BuyerB", receipts[1].Buyer)
}
