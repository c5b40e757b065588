package lifecycle

import (
	"errors"

	"solana-ido-ledger/internal/rate"
)

// Transition errors. Each belongs to one Kind; callers branch on the
// sentinel with errors.Is and on the class with Kind.
var (
	// Creation (configuration) errors.
	ErrStartTimeInPast   = errors.New("start time cannot be in the past")
	ErrEndTimeInPast     = errors.New("end time cannot be in the past")
	ErrEndBeforeStart    = errors.New("end time must not be before start time")
	ErrClaimTimeInPast   = errors.New("claim time cannot be in the past")
	ErrClaimBeforeEnd    = errors.New("claim time must not be before end time")
	ErrInvalidRate       = errors.New("rate must be positive and rate decimals within range")
	ErrPoolAlreadyExists = errors.New("pool already exists")

	// Phase errors: expected outcomes of time gating, retryable once the
	// phase changes.
	ErrSaleNotStarted  = errors.New("sale has not started yet")
	ErrSaleEnded       = errors.New("sale has ended")
	ErrClaimNotStarted = errors.New("claim period has not started yet")

	// Supply errors.
	ErrSupplyExceeded     = errors.New("not enough tokens left to buy")
	ErrBuyerLimitExceeded = errors.New("purchase exceeds per-buyer limit")

	// State errors: caller usage errors, never retried.
	ErrInvalidAmount  = errors.New("amount must convert to a positive token amount")
	ErrNothingToClaim = errors.New("buyer has not bought tokens")
	ErrAlreadyClaimed = errors.New("tokens already claimed")
)

// Kind classifies a transition error per the failure taxonomy.
type Kind string

const (
	KindConfiguration Kind = "CONFIGURATION"
	KindPhase         Kind = "PHASE"
	KindSupply        Kind = "SUPPLY"
	KindState         Kind = "STATE"
	KindArithmetic    Kind = "ARITHMETIC"
	KindUnknown       Kind = "UNKNOWN"
)

// ErrorKind returns the taxonomy class of err, unwrapping as needed.
func ErrorKind(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrStartTimeInPast),
		errors.Is(err, ErrEndTimeInPast),
		errors.Is(err, ErrEndBeforeStart),
		errors.Is(err, ErrClaimTimeInPast),
		errors.Is(err, ErrClaimBeforeEnd),
		errors.Is(err, ErrInvalidRate),
		errors.Is(err, ErrPoolAlreadyExists):
		return KindConfiguration
	case errors.Is(err, ErrSaleNotStarted),
		errors.Is(err, ErrSaleEnded),
		errors.Is(err, ErrClaimNotStarted):
		return KindPhase
	case errors.Is(err, ErrSupplyExceeded),
		errors.Is(err, ErrBuyerLimitExceeded):
		return KindSupply
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrNothingToClaim),
		errors.Is(err, ErrAlreadyClaimed):
		return KindState
	case errors.Is(err, rate.ErrOverflow):
		return KindArithmetic
	default:
		return KindUnknown
	}
}
