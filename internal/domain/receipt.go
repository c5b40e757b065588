package domain

// PurchaseReceipt is the per-(pool, buyer) ledger entry. It is created
// lazily on the buyer's first successful purchase and therefore always
// carries AmountPurchased > 0.
// Corresponds to purchase_receipts table in PostgreSQL.
type PurchaseReceipt struct {
	ReceiptID       string // PRIMARY KEY, deterministic hash of (pool, buyer)
	PoolID          string // pool this receipt belongs to
	Buyer           string // base58 address of the buyer
	AmountPurchased uint64 // cumulative sale tokens bought
	AmountClaimed   uint64 // sale tokens released to the buyer (0 or AmountPurchased)
	Claimed         bool   // true once the single claim succeeded
	FirstPurchaseAt int64  // unix seconds of the first purchase
	ClaimedAt       int64  // unix seconds of the claim, 0 while unclaimed
}
