package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
// Amounts are persisted as BIGINT; values beyond 2^63-1 are outside the
// supported range of this backend.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

const poolColumns = `
	pool_id, name, creator, currency_asset, sale_asset,
	rate, rate_decimals, start_time, end_time, claim_time,
	supply_total, supply_sold, max_per_buyer, created_at
`

// Insert adds a new pool. Returns ErrDuplicateKey if pool_id exists.
func (s *PoolStore) Insert(ctx context.Context, p *domain.Pool) error {
	query := `
		INSERT INTO pools (
			pool_id, name, creator, currency_asset, sale_asset,
			rate, rate_decimals, start_time, end_time, claim_time,
			supply_total, supply_sold, max_per_buyer, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PoolID,
		p.Name,
		p.Creator,
		p.CurrencyAsset,
		p.SaleAsset,
		int64(p.Rate),
		int16(p.RateDecimals),
		p.StartTime,
		p.EndTime,
		p.ClaimTime,
		int64(p.SupplyTotal),
		int64(p.SupplySold),
		int64(p.MaxPerBuyer),
		p.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

// GetByID retrieves a pool by its ID. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(ctx context.Context, poolID string) (*domain.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE pool_id = $1`

	row := s.pool.QueryRow(ctx, query, poolID)
	p, err := scanPool(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by id: %w", err)
	}
	return p, nil
}

// GetBySaleAsset retrieves all pools selling a given asset.
func (s *PoolStore) GetBySaleAsset(ctx context.Context, saleAsset string) ([]*domain.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE sale_asset = $1 ORDER BY created_at ASC, pool_id ASC`

	rows, err := s.pool.Query(ctx, query, saleAsset)
	if err != nil {
		return nil, fmt.Errorf("get pools by sale asset: %w", err)
	}
	defer rows.Close()

	return scanPools(rows)
}

// List retrieves all pools ordered by created_at ASC.
func (s *PoolStore) List(ctx context.Context) ([]*domain.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools ORDER BY created_at ASC, pool_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	return scanPools(rows)
}

// scanPool scans a single row into a Pool.
func scanPool(row pgx.Row) (*domain.Pool, error) {
	var p domain.Pool
	var rate, supplyTotal, supplySold, maxPerBuyer int64
	var rateDecimals int16

	err := row.Scan(
		&p.PoolID,
		&p.Name,
		&p.Creator,
		&p.CurrencyAsset,
		&p.SaleAsset,
		&rate,
		&rateDecimals,
		&p.StartTime,
		&p.EndTime,
		&p.ClaimTime,
		&supplyTotal,
		&supplySold,
		&maxPerBuyer,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Rate = uint64(rate)
	p.RateDecimals = uint8(rateDecimals)
	p.SupplyTotal = uint64(supplyTotal)
	p.SupplySold = uint64(supplySold)
	p.MaxPerBuyer = uint64(maxPerBuyer)
	return &p, nil
}

// scanPools scans multiple rows into a slice of Pool.
func scanPools(rows pgx.Rows) ([]*domain.Pool, error) {
	var pools []*domain.Pool

	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool row: %w", err)
		}
		pools = append(pools, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool rows: %w", err)
	}

	return pools, nil
}
