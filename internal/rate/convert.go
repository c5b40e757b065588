// Package rate converts paid-currency amounts into sale-token amounts
// using a fixed-point rate of rate/10^rateDecimals tokens per currency
// unit. The multiplication runs in a 128-bit intermediate so the full
// uint64 range of both operands is supported.
package rate

import (
	"errors"
	"math/bits"
)

// ErrOverflow is returned when the converted amount does not fit uint64
// or rateDecimals is outside the supported range.
var ErrOverflow = errors.New("rate conversion overflows uint64")

// MaxRateDecimals is the largest supported fixed-point scale (10^19 is
// the last power of ten below 2^64).
const MaxRateDecimals = 19

// pow10 holds 10^0 .. 10^19.
var pow10 = [MaxRateDecimals + 1]uint64{
	1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000,
	100_000_000, 1_000_000_000, 10_000_000_000, 100_000_000_000,
	1_000_000_000_000, 10_000_000_000_000, 100_000_000_000_000,
	1_000_000_000_000_000, 10_000_000_000_000_000,
	100_000_000_000_000_000, 1_000_000_000_000_000_000,
	10_000_000_000_000_000_000,
}

// Convert computes floor(paid * rate / 10^rateDecimals).
// Division truncates toward zero: fractional units never round in the
// buyer's favor. Returns ErrOverflow if the quotient exceeds uint64.
func Convert(paid, rate uint64, rateDecimals uint8) (uint64, error) {
	if rateDecimals > MaxRateDecimals {
		return 0, ErrOverflow
	}
	div := pow10[rateDecimals]

	hi, lo := bits.Mul64(paid, rate)
	// bits.Div64 panics when the quotient does not fit; hi >= div is
	// exactly that condition.
	if hi >= div {
		return 0, ErrOverflow
	}
	quo, _ := bits.Div64(hi, lo, div)
	return quo, nil
}
