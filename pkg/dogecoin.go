package gate

// L1 represents access to Dogecoin's L1 functionality: key derivation and
// transaction building through libdogecoin, relay and fee estimates
// through Dogecoin Core.
type L1 interface {
	Sender
	MakeAddress(isTestNet bool) (Address, Privkey, error)
	MakeChildAddress(privkey Privkey, addressIndex uint32, isInternal bool) (Address, error)
	MakeTransaction(inputs []UTXO, outputs []NewTxOut, fee Koinu, change Address, privkey Privkey) (NewTxn, error)
	EstimateFee(confirmTarget int) (feePerKB Koinu, err error)
}

// Sender relays a raw transaction to the network.
type Sender interface {
	Send(txnHex string) (txid string, err error)
}
