package memory

import (
	"context"
	"sort"
	"sync"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.PoolStore,
// storage.ReceiptStore and storage.TxRunner. One mutex guards both
// record sets, so every transaction is trivially serializable.
type LedgerStore struct {
	mu       sync.RWMutex
	pools    map[string]*domain.Pool            // keyed by pool_id
	receipts map[string]*domain.PurchaseReceipt // keyed by pool_id|buyer
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		pools:    make(map[string]*domain.Pool),
		receipts: make(map[string]*domain.PurchaseReceipt),
	}
}

func receiptKey(poolID, buyer string) string {
	return poolID + "|" + buyer
}

// Insert adds a new pool. Returns ErrDuplicateKey if pool_id exists.
func (s *LedgerStore) Insert(_ context.Context, p *domain.Pool) error {
	if p == nil || p.PoolID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pools[p.PoolID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.pools[p.PoolID] = &copy
	return nil
}

// GetByID retrieves a pool by its ID. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetByID(_ context.Context, poolID string) (*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.pools[poolID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *p
	return &copy, nil
}

// GetBySaleAsset retrieves all pools selling a given asset.
func (s *LedgerStore) GetBySaleAsset(_ context.Context, saleAsset string) ([]*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Pool
	for _, p := range s.pools {
		if p.SaleAsset == saleAsset {
			copy := *p
			result = append(result, &copy)
		}
	}

	sortPools(result)
	return result, nil
}

// List retrieves all pools ordered by created_at ASC.
func (s *LedgerStore) List(_ context.Context) ([]*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Pool, 0, len(s.pools))
	for _, p := range s.pools {
		copy := *p
		result = append(result, &copy)
	}

	sortPools(result)
	return result, nil
}

func sortPools(pools []*domain.Pool) {
	sort.Slice(pools, func(i, j int) bool {
		if pools[i].CreatedAt != pools[j].CreatedAt {
			return pools[i].CreatedAt < pools[j].CreatedAt
		}
		return pools[i].PoolID < pools[j].PoolID
	})
}

// Get retrieves the receipt for (pool, buyer). Returns ErrNotFound if not exists.
func (s *LedgerStore) Get(_ context.Context, poolID, buyer string) (*domain.PurchaseReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.receipts[receiptKey(poolID, buyer)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByPool retrieves all receipts for a pool, ordered by first_purchase_at ASC.
func (s *LedgerStore) GetByPool(_ context.Context, poolID string) ([]*domain.PurchaseReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PurchaseReceipt
	for _, r := range s.receipts {
		if r.PoolID == poolID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].FirstPurchaseAt != result[j].FirstPurchaseAt {
			return result[i].FirstPurchaseAt < result[j].FirstPurchaseAt
		}
		return result[i].Buyer < result[j].Buyer
	})

	return result, nil
}

// WithinTx runs fn under the store mutex. Writes are staged and applied
// only when fn succeeds, so a failed transition leaves no trace.
func (s *LedgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for id, p := range tx.stagedPools {
		s.pools[id] = p
	}
	for key, r := range tx.stagedReceipts {
		s.receipts[key] = r
	}
	return nil
}

// memTx stages transaction writes against a locked LedgerStore.
type memTx struct {
	store          *LedgerStore
	stagedPools    map[string]*domain.Pool
	stagedReceipts map[string]*domain.PurchaseReceipt
}

// GetPoolForUpdate loads and locks a pool. Returns ErrNotFound if not exists.
func (t *memTx) GetPoolForUpdate(_ context.Context, poolID string) (*domain.Pool, error) {
	if p, ok := t.stagedPools[poolID]; ok {
		copy := *p
		return &copy, nil
	}
	p, exists := t.store.pools[poolID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

// SavePool persists a mutated pool.
func (t *memTx) SavePool(_ context.Context, p *domain.Pool) error {
	if p == nil || p.PoolID == "" {
		return storage.ErrInvalidInput
	}
	if t.stagedPools == nil {
		t.stagedPools = make(map[string]*domain.Pool)
	}
	copy := *p
	t.stagedPools[p.PoolID] = &copy
	return nil
}

// GetReceiptForUpdate loads and locks the (pool, buyer) receipt.
func (t *memTx) GetReceiptForUpdate(_ context.Context, poolID, buyer string) (*domain.PurchaseReceipt, error) {
	key := receiptKey(poolID, buyer)
	if r, ok := t.stagedReceipts[key]; ok {
		copy := *r
		return &copy, nil
	}
	r, exists := t.store.receipts[key]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *r
	return &copy, nil
}

// SaveReceipt inserts or updates a receipt.
func (t *memTx) SaveReceipt(_ context.Context, r *domain.PurchaseReceipt) error {
	if r == nil || r.PoolID == "" || r.Buyer == "" {
		return storage.ErrInvalidInput
	}
	if t.stagedReceipts == nil {
		t.stagedReceipts = make(map[string]*domain.PurchaseReceipt)
	}
	copy := *r
	t.stagedReceipts[receiptKey(r.PoolID, r.Buyer)] = &copy
	return nil
}

// Compile-time interface checks.
var (
	_ storage.PoolStore    = (*LedgerStore)(nil)
	_ storage.ReceiptStore = (*LedgerStore)(nil)
	_ storage.TxRunner     = (*LedgerStore)(nil)
	_ storage.Ledger       = (*memTx)(nil)
)
