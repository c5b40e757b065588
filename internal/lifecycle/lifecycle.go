// Package lifecycle implements the pool state machine: phase derivation
// from wall-clock time and the three validated transitions (create,
// purchase, claim). Functions here mutate only the records passed in;
// persistence and atomicity belong to the caller.
package lifecycle

import (
	"fmt"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/idhash"
	"solana-ido-ledger/internal/rate"
)

// PhaseAt derives the pool phase at the given unix time. Phases advance
// only with time; no transition moves a pool between phases directly.
func PhaseAt(pool *domain.Pool, now int64) domain.Phase {
	switch {
	case now < pool.StartTime:
		return domain.PhasePending
	case now <= pool.EndTime:
		return domain.PhaseActive
	case now < pool.ClaimTime:
		return domain.PhaseClosed
	default:
		return domain.PhaseClaimable
	}
}

// CreatePoolParams carries the caller-supplied pool configuration.
type CreatePoolParams struct {
	PoolID        string // optional; derived from SaleAsset when empty
	Name          string
	CurrencyAsset string
	SaleAsset     string
	Rate          uint64
	RateDecimals  uint8
	StartTime     int64
	EndTime       int64
	ClaimTime     int64
	SupplyTotal   uint64
	MaxPerBuyer   uint64 // 0 = unlimited
}

// ValidateCreate checks the time ordering and rate configuration of a
// new pool against the current time. Check order matches the on-chain
// program so callers see the same first failure.
func ValidateCreate(params CreatePoolParams, now int64) error {
	if params.StartTime < now {
		return ErrStartTimeInPast
	}
	if params.EndTime < now {
		return ErrEndTimeInPast
	}
	if params.EndTime < params.StartTime {
		return ErrEndBeforeStart
	}
	if params.ClaimTime < now {
		return ErrClaimTimeInPast
	}
	if params.ClaimTime < params.EndTime {
		return ErrClaimBeforeEnd
	}
	if params.Rate == 0 || params.RateDecimals > rate.MaxRateDecimals {
		return ErrInvalidRate
	}
	return nil
}

// NewPool builds the Pool record for validated params. SupplySold
// starts at zero; the creator is fixed for the life of the pool.
func NewPool(params CreatePoolParams, creator string, now int64) *domain.Pool {
	poolID := params.PoolID
	if poolID == "" {
		poolID = idhash.ComputePoolID(params.SaleAsset)
	}
	return &domain.Pool{
		PoolID:        poolID,
		Name:          params.Name,
		Creator:       creator,
		CurrencyAsset: params.CurrencyAsset,
		SaleAsset:     params.SaleAsset,
		Rate:          params.Rate,
		RateDecimals:  params.RateDecimals,
		StartTime:     params.StartTime,
		EndTime:       params.EndTime,
		ClaimTime:     params.ClaimTime,
		SupplyTotal:   params.SupplyTotal,
		SupplySold:    0,
		MaxPerBuyer:   params.MaxPerBuyer,
		CreatedAt:     now,
	}
}

// PurchaseResult reports the outcome of a successful purchase.
type PurchaseResult struct {
	Tokens  uint64                  // sale tokens bought in this purchase
	Receipt *domain.PurchaseReceipt // created or updated receipt
}

// Purchase validates and applies a buy against the pool and the buyer's
// receipt (nil on first purchase). On success pool.SupplySold and the
// receipt are mutated together; on any error neither is touched.
func Purchase(pool *domain.Pool, receipt *domain.PurchaseReceipt, buyer string, paidAmount uint64, now int64) (*PurchaseResult, error) {
	if now < pool.StartTime {
		return nil, ErrSaleNotStarted
	}
	if now > pool.EndTime {
		return nil, ErrSaleEnded
	}
	if paidAmount == 0 {
		return nil, ErrInvalidAmount
	}

	tokens, err := rate.Convert(paidAmount, pool.Rate, pool.RateDecimals)
	if err != nil {
		return nil, err
	}
	// A receipt only exists with a positive purchased amount; a paid
	// amount too small to buy a whole token unit is rejected.
	if tokens == 0 {
		return nil, ErrInvalidAmount
	}

	if tokens > pool.SupplyRemaining() {
		return nil, ErrSupplyExceeded
	}

	purchased := uint64(0)
	if receipt != nil {
		purchased = receipt.AmountPurchased
	}
	if pool.MaxPerBuyer > 0 && purchased+tokens > pool.MaxPerBuyer {
		return nil, ErrBuyerLimitExceeded
	}

	pool.SupplySold += tokens
	if receipt == nil {
		receipt = &domain.PurchaseReceipt{
			ReceiptID:       idhash.ComputeReceiptID(pool.PoolID, buyer),
			PoolID:          pool.PoolID,
			Buyer:           buyer,
			FirstPurchaseAt: now,
		}
	}
	receipt.AmountPurchased += tokens

	if err := checkInvariants(pool, receipt); err != nil {
		return nil, err
	}
	return &PurchaseResult{Tokens: tokens, Receipt: receipt}, nil
}

// ClaimResult reports the outcome of a successful claim.
type ClaimResult struct {
	Tokens  uint64 // sale tokens released, equal to the cumulative purchase
	Receipt *domain.PurchaseReceipt
}

// Claim validates and applies the single all-or-nothing claim on a
// buyer's receipt (nil when the buyer never purchased).
func Claim(pool *domain.Pool, receipt *domain.PurchaseReceipt, now int64) (*ClaimResult, error) {
	if now < pool.ClaimTime {
		return nil, ErrClaimNotStarted
	}
	if receipt == nil || receipt.AmountPurchased == 0 {
		return nil, ErrNothingToClaim
	}
	if receipt.Claimed {
		return nil, ErrAlreadyClaimed
	}

	receipt.Claimed = true
	receipt.AmountClaimed = receipt.AmountPurchased
	receipt.ClaimedAt = now

	if err := checkInvariants(pool, receipt); err != nil {
		return nil, err
	}
	return &ClaimResult{Tokens: receipt.AmountClaimed, Receipt: receipt}, nil
}

// checkInvariants re-validates the one-way ratchets after a mutation.
// A failure here means a bug, not a caller error.
func checkInvariants(pool *domain.Pool, receipt *domain.PurchaseReceipt) error {
	if pool.SupplySold > pool.SupplyTotal {
		return fmt.Errorf("invariant violated: supply_sold %d > supply_total %d for pool %s",
			pool.SupplySold, pool.SupplyTotal, pool.PoolID)
	}
	if receipt != nil {
		if receipt.AmountPurchased == 0 {
			return fmt.Errorf("invariant violated: receipt %s exists with zero purchase", receipt.ReceiptID)
		}
		if receipt.Claimed && receipt.AmountClaimed != receipt.AmountPurchased {
			return fmt.Errorf("invariant violated: receipt %s claimed %d of %d",
				receipt.ReceiptID, receipt.AmountClaimed, receipt.AmountPurchased)
		}
		if !receipt.Claimed && receipt.AmountClaimed != 0 {
			return fmt.Errorf("invariant violated: receipt %s has claimed amount without claim", receipt.ReceiptID)
		}
	}
	return nil
}
