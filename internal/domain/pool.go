package domain

// Pool represents one time-boxed token sale offering.
// Corresponds to pools table in PostgreSQL.
type Pool struct {
	PoolID        string // PRIMARY KEY, deterministic hash or caller-supplied
	Name          string // display name
	Creator       string // base58 address of the authorized pool creator
	CurrencyAsset string // base58 mint of the paid-in asset
	SaleAsset     string // base58 mint of the asset being sold
	Rate          uint64 // sale tokens per currency unit, scaled by 10^RateDecimals
	RateDecimals  uint8  // fixed-point scale of Rate
	StartTime     int64  // sale opens (unix seconds)
	EndTime       int64  // sale closes (unix seconds)
	ClaimTime     int64  // claims unlock (unix seconds)
	SupplyTotal   uint64 // sale tokens allocated, fixed at creation
	SupplySold    uint64 // sale tokens purchased so far
	MaxPerBuyer   uint64 // cumulative per-buyer cap in sale tokens, 0 = unlimited
	CreatedAt     int64  // record creation timestamp (unix seconds)
}

// SupplyRemaining returns the unsold portion of the allocation.
func (p *Pool) SupplyRemaining() uint64 {
	if p.SupplySold > p.SupplyTotal {
		return 0
	}
	return p.SupplyTotal - p.SupplySold
}

// Phase is the time-derived state of a pool. It is computed from the
// current time against the pool timestamps and never persisted.
type Phase string

const (
	PhasePending   Phase = "PENDING"   // now < start_time
	PhaseActive    Phase = "ACTIVE"    // start_time <= now <= end_time
	PhaseClosed    Phase = "CLOSED"    // end_time < now < claim_time
	PhaseClaimable Phase = "CLAIMABLE" // now >= claim_time
)
