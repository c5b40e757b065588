// Package identity validates Solana addresses and answers authorization
// questions for the ledger. Signature verification happens upstream; by
// the time an address reaches this package the caller has already proven
// control of it.
package identity

import (
	"context"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateAddress checks that addr is a base58-encoded 32-byte key.
func ValidateAddress(addr string) error {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("address must decode to 32 bytes, got %d", len(decoded))
	}
	return nil
}

// IsOnCurve reports whether addr decodes to a valid ed25519 point.
// Wallet addresses are on-curve; program-derived custody addresses are
// not, so this distinguishes user identities from derived accounts.
func IsOnCurve(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}

// ValidateWalletAddress checks that addr is a well-formed on-curve
// wallet key. Used for buyers and administrators, whose identities must
// be signing-capable.
func ValidateWalletAddress(addr string) error {
	if err := ValidateAddress(addr); err != nil {
		return err
	}
	if !IsOnCurve(addr) {
		return fmt.Errorf("address %s is not an ed25519 wallet key", addr)
	}
	return nil
}

// Authorizer answers whether an identity holds a platform role.
type Authorizer interface {
	IsAuthorized(ctx context.Context, identity, role string) (bool, error)
}
