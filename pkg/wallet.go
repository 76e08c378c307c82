package gate

// ReceiveWallet is the gateway's side of the wallet: it hands out fresh
// receive addresses and says how much of a transaction pays one of them.
type ReceiveWallet interface {
	FreshReceiveAddress() (Address, error)
	// ValueToAddress is zero when to was never handed out by this wallet.
	ValueToAddress(tx []byte, to Address) (Koinu, error)
}

// SpendWallet is the paying client's side of the wallet.
type SpendWallet interface {
	Balance() (Koinu, error)
	BuildPayment(amount Koinu, to Address) (FundingResult, error)
	Commit(tx NewTxn) error
	// ReceiveAddress is a fresh address of this wallet, sent as the refund address.
	ReceiveAddress() (Address, error)
	// LockSpend serializes fund selection and commit; call the returned
	// func to release.
	LockSpend() (unlock func())
}
