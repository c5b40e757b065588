package domain

// TransferIntent instructs the external custody service to move an
// asset. The ledger never moves funds itself; it records amounts owed
// and hands one of these to the caller's transfer executor.
type TransferIntent struct {
	Asset  string // base58 mint of the asset to move
	Amount uint64 // base units
	From   string // base58 source address
	To     string // base58 destination address
	Memo   string // operation context for idempotent settlement
}
