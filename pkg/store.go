package gate

// ReceiveStore persists the HD derivation cursors so that an address is
// never handed out twice, including across restarts. External (receive)
// and internal (change) chains have separate cursors.
type ReceiveStore interface {
	// ReserveReceiveAddress atomically takes the next key index on the
	// chosen chain, calls derive with it, records the resulting address
	// and advances the cursor. When derive fails nothing is recorded but
	// the cursor still moves past the index.
	ReserveReceiveAddress(internal bool, derive func(index uint32) (Address, error)) (Address, uint32, error)
	IsReceiveAddress(addr Address) (bool, error)
	// LookupReceiveAddress returns the key index and chain of an address
	// previously reserved; found is false for foreign addresses.
	LookupReceiveAddress(addr Address) (index uint32, internal bool, found bool, err error)
}

// SpendStore holds the spending wallet's UTXO set.
type SpendStore interface {
	AddUTXO(utxo UTXO) error
	ListUnspentUTXOs() ([]UTXO, error)
	// SpendUTXOs marks inputs spent by txid and records change, atomically.
	SpendUTXOs(inputs []UTXO, txid string, change *UTXO) error
}

type Store interface {
	ReceiveStore
	SpendStore
	Close()
}
