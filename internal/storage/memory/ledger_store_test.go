package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/storage"
)

func testPool(id string) *domain.Pool {
	return &domain.Pool{
		PoolID:        id,
		Name:          "Test Sale",
		Creator:       "CreatorAddr",
		CurrencyAsset: "CurrencyMint",
		SaleAsset:     "SaleMint-" + id,
		Rate:          2,
		StartTime:     100,
		EndTime:       200,
		ClaimTime:     300,
		SupplyTotal:   1000,
		CreatedAt:     50,
	}
}

func TestLedgerStore_InsertAndGet(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	p := testPool("pool-1")
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "pool-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.SaleAsset != p.SaleAsset {
		t.Errorf("SaleAsset mismatch: got %s, want %s", got.SaleAsset, p.SaleAsset)
	}

	// Mutating the returned copy must not affect the store.
	got.SupplySold = 999
	again, _ := store.GetByID(ctx, "pool-1")
	if again.SupplySold != 0 {
		t.Errorf("store record mutated through returned copy")
	}
}

func TestLedgerStore_DuplicatePool(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testPool("pool-1")); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	err := store.Insert(ctx, testPool("pool-1"))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestLedgerStore_GetMissing(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	if _, err := store.GetByID(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for pool, got %v", err)
	}
	if _, err := store.Get(ctx, "nope", "buyer"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for receipt, got %v", err)
	}
}

func TestLedgerStore_WithinTx_CommitAndRead(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testPool("pool-1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.WithinTx(ctx, func(ctx context.Context, tx storage.Ledger) error {
		pool, err := tx.GetPoolForUpdate(ctx, "pool-1")
		if err != nil {
			return err
		}
		pool.SupplySold = 200
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}
		return tx.SaveReceipt(ctx, &domain.PurchaseReceipt{
			ReceiptID:       "r-1",
			PoolID:          "pool-1",
			Buyer:           "BuyerAddr",
			AmountPurchased: 200,
			FirstPurchaseAt: 150,
		})
	})
	if err != nil {
		t.Fatalf("WithinTx failed: %v", err)
	}

	pool, err := store.GetByID(ctx, "pool-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if pool.SupplySold != 200 {
		t.Errorf("SupplySold = %d, want 200", pool.SupplySold)
	}

	receipt, err := store.Get(ctx, "pool-1", "BuyerAddr")
	if err != nil {
		t.Fatalf("Get receipt failed: %v", err)
	}
	if receipt.AmountPurchased != 200 {
		t.Errorf("AmountPurchased = %d, want 200", receipt.AmountPurchased)
	}
}

func TestLedgerStore_WithinTx_RollbackOnError(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testPool("pool-1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	sentinel := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx storage.Ledger) error {
		pool, err := tx.GetPoolForUpdate(ctx, "pool-1")
		if err != nil {
			return err
		}
		pool.SupplySold = 999
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Expected sentinel error, got %v", err)
	}

	pool, _ := store.GetByID(ctx, "pool-1")
	if pool.SupplySold != 0 {
		t.Errorf("rollback failed: SupplySold = %d, want 0", pool.SupplySold)
	}
}

func TestLedgerStore_WithinTx_ReadsOwnWrites(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testPool("pool-1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.WithinTx(ctx, func(ctx context.Context, tx storage.Ledger) error {
		pool, _ := tx.GetPoolForUpdate(ctx, "pool-1")
		pool.SupplySold = 100
		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}

		reread, err := tx.GetPoolForUpdate(ctx, "pool-1")
		if err != nil {
			return err
		}
		if reread.SupplySold != 100 {
			t.Errorf("tx did not read its own write: SupplySold = %d", reread.SupplySold)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx failed: %v", err)
	}
}

// Concurrent read-modify-write transactions against one pool must
// serialize: the final counter equals the sum of all increments.
func TestLedgerStore_WithinTx_Serializable(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	pool := testPool("pool-1")
	pool.SupplyTotal = 100_000
	if err := store.Insert(ctx, pool); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	const workers = 16
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				err := store.WithinTx(ctx, func(ctx context.Context, tx storage.Ledger) error {
					p, err := tx.GetPoolForUpdate(ctx, "pool-1")
					if err != nil {
						return err
					}
					p.SupplySold += 10
					return tx.SavePool(ctx, p)
				})
				if err != nil {
					t.Errorf("WithinTx failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	got, _ := store.GetByID(ctx, "pool-1")
	want := uint64(workers * perWorker * 10)
	if got.SupplySold != want {
		t.Errorf("SupplySold = %d, want %d", got.SupplySold, want)
	}
}

func TestLedgerStore_GetByPool(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testPool("pool-1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	receipts := []*domain.PurchaseReceipt{
		{ReceiptID: "r-2", PoolID: "pool-1", Buyer: "Buyer2", AmountPurchased: 50, FirstPurchaseAt: 160},
		{ReceiptID: "r-1", PoolID: "pool-1", Buyer: "Buyer1", AmountPurchased: 100, FirstPurchaseAt: 150},
		{ReceiptID: "r-3", PoolID: "pool-2", Buyer: "Buyer1", AmountPurchased: 75, FirstPurchaseAt: 140},
	}
	for _, r := range receipts {
		err := store.WithinTx(ctx, func(ctx context.Context, tx storage.Ledger) error {
			return tx.SaveReceipt(ctx, r)
		})
		if err != nil {
			t.Fatalf("SaveReceipt failed: %v", err)
		}
	}

	got, err := store.GetByPool(ctx, "pool-1")
	if err != nil {
		t.Fatalf("GetByPool failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Buyer != "Buyer1" || got[1].Buyer != "Buyer2" {
		t.Errorf("not ordered by first_purchase_at: %s, %s", got[0].Buyer, got[1].Buyer)
	}
}
