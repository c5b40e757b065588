// Package idhash derives deterministic identifiers for ledger records.
// The seed-prefixed inputs mirror the on-chain address derivation the
// platform uses, so an off-chain record and its on-chain account resolve
// to the same identity.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Derivation seeds.
const (
	poolSeed    = "ido_platform_pool_seed"
	receiptSeed = "ido_platform_buy_token_seed"
)

// ComputePoolID computes a deterministic pool_id using SHA256.
// Formula: SHA256(pool_seed|sale_asset)
// Returns hex-encoded hash (64 characters).
func ComputePoolID(saleAsset string) string {
	data := fmt.Sprintf("%s|%s", poolSeed, saleAsset)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeReceiptID computes a deterministic receipt_id using SHA256.
// Formula: SHA256(receipt_seed|pool_id|buyer)
// Returns hex-encoded hash (64 characters).
func ComputeReceiptID(poolID, buyer string) string {
	data := fmt.Sprintf("%s|%s|%s", receiptSeed, poolID, buyer)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
