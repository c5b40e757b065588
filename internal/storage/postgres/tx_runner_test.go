package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/storage"
)

func TestTxRunner_CommitPersistsPoolAndReceipt(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	poolStore := NewPoolStore(pool)
	receiptStore := NewReceiptStore(pool)
	runner := NewTxRunner(pool)

	require.NoError(t, poolStore.Insert(ctx, createTestPool("pool-001")))

	err := runner.WithinTx(ctx, func(ctx context.Context, tx storage.Ledger) error {
		p, err := tx.GetPoolForUpdate(ctx, "pool-001")
		if err != nil {
			return err
		}
		p.SupplySold = 200
		if err := tx.SavePool(ctx, p); err != nil {
			return err
		}
		return tx.SaveReceipt(ctx, &domain.PurchaseReceipt{
			ReceiptID:       "receipt-001",
			PoolID:          "pool-001",
			Buyer:           "BuyerAddr",
			AmountPurchased: 200,
			FirstPurchaseAt: 150,
		})
	})
	require.NoError(t, err)

	p, err := poolStore.GetByID(ctx, "pool-001")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), p.SupplySold)

	r, err := receiptStore.Get(ctx, "pool-001", "BuyerAddr")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), r.AmountPurchased)
	assert.False(t, r.Claimed)
}

func TestTxRunner_RollbackOnError(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	poolStore := NewPoolStore(pool)
	runner := NewTxRunner(pool)

	require.NoError(t, poolStore.Insert(ctx, createTestPool("pool-001")))

	sentinel := errors.New("validation failed")
	err := runner.WithinTx(ctx, func(ctx context.Context, tx storage.Ledger) error {
		p, err := tx.GetPoolForUpdate(ctx, "pool-001")
		if err != nil {
			return err
		}
		p.SupplySold = 999
		if err := tx.SavePool(ctx, p); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	p, err := poolStore.GetByID(ctx, "pool-001")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.SupplySold, "rolled-back write must not persist")
}

func TestTxRunner_SaveReceiptUpsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	poolStore := NewPoolStore(pool)
	receiptStore := NewReceiptStore(pool)
	runner := NewTxRunner(pool)

	require.NoError(t, poolStore.Insert(ctx, createTestPool("pool-001")))

	save := func(r *domain.PurchaseReceipt) error {
		return runner.WithinTx(ctx, func(ctx context.Context, tx storage.Ledger) error {
			return tx.SaveReceipt(ctx, r)
		})
	}

	require.NoError(t, save(&domain.PurchaseReceipt{
		ReceiptID:       "receipt-001",
		PoolID:          "pool-001",
		Buyer:           "BuyerAddr",
		AmountPurchased: 200,
		FirstPurchaseAt: 150,
	}))
	require.NoError(t, save(&domain.PurchaseReceipt{
		ReceiptID:       "receipt-001",
		PoolID:          "pool-001",
		Buyer:           "BuyerAddr",
		AmountPurchased: 300,
		AmountClaimed:   300,
		Claimed:         true,
		FirstPurchaseAt: 150,
		ClaimedAt:       300,
	}))

	r, err := receiptStore.Get(ctx, "pool-001", "BuyerAddr")
	require.NoError(t, err)
	assert.Equal(t, uint64(300), r.AmountPurchased)
	assert.True(t, r.Claimed)
	assert.Equal(t, uint64(300), r.AmountClaimed)
	assert.Equal(t, int64(300), r.ClaimedAt)
}

// Concurrent increments against one pool must serialize on the row
// lock: the final supply_sold equals the sum of all increments.
func TestTxRunner_ConcurrentIncrementsSerialize(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	poolStore := NewPoolStore(pool)
	runner := NewTxRunner(pool)

	p := createTestPool("pool-001")
	p.SupplyTotal = 100_000
	require.NoError(t, poolStore.Insert(ctx, p))

	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				err := runner.WithinTx(ctx, func(ctx context.Context, tx storage.Ledger) error {
					p, err := tx.GetPoolForUpdate(ctx, "pool-001")
					if err != nil {
						return err
					}
					p.SupplySold += 10
					return tx.SavePool(ctx, p)
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	got, err := poolStore.GetByID(ctx, "pool-001")
	require.NoError(t, err)
	assert.Equal(t, uint64(workers*perWorker*10), got.SupplySold)
}
