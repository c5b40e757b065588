package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-ido-ledger/internal/storage"
)

func TestPoolStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStore(pool)

	p := createTestPool("pool-001")
	p.MaxPerBuyer = 500

	err := store.Insert(ctx, p)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, "pool-001")
	require.NoError(t, err)

	assert.Equal(t, p.PoolID, got.PoolID)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Creator, got.Creator)
	assert.Equal(t, p.CurrencyAsset, got.CurrencyAsset)
	assert.Equal(t, p.SaleAsset, got.SaleAsset)
	assert.Equal(t, p.Rate, got.Rate)
	assert.Equal(t, p.RateDecimals, got.RateDecimals)
	assert.Equal(t, p.StartTime, got.StartTime)
	assert.Equal(t, p.EndTime, got.EndTime)
	assert.Equal(t, p.ClaimTime, got.ClaimTime)
	assert.Equal(t, p.SupplyTotal, got.SupplyTotal)
	assert.Equal(t, uint64(0), got.SupplySold)
	assert.Equal(t, uint64(500), got.MaxPerBuyer)
	assert.Equal(t, p.CreatedAt, got.CreatedAt)
}

func TestPoolStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStore(pool)

	err := store.Insert(ctx, createTestPool("pool-001"))
	require.NoError(t, err)

	err = store.Insert(ctx, createTestPool("pool-001"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPoolStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStore(pool)

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPoolStore_GetBySaleAssetAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPoolStore(pool)

	p1 := createTestPool("pool-001")
	p1.CreatedAt = 10
	p2 := createTestPool("pool-002")
	p2.CreatedAt = 20
	p3 := createTestPool("pool-003")
	p3.SaleAsset = p1.SaleAsset
	p3.CreatedAt = 30

	require.NoError(t, store.Insert(ctx, p1))
	require.NoError(t, store.Insert(ctx, p2))
	require.NoError(t, store.Insert(ctx, p3))

	byAsset, err := store.GetBySaleAsset(ctx, p1.SaleAsset)
	require.NoError(t, err)
	require.Len(t, byAsset, 2)
	assert.Equal(t, "pool-001", byAsset[0].PoolID)
	assert.Equal(t, "pool-003", byAsset[1].PoolID)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "pool-001", all[0].PoolID)
	assert.Equal(t, "pool-003", all[2].PoolID)
}
