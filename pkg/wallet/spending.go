package wallet

import (
	"errors"
	"sync"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/doge"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
)

// interface guard ensures SpendingWallet implements gate.SpendWallet
var _ gate.SpendWallet = &SpendingWallet{}

// SpendingWallet is the paying client's wallet: an extended private key,
// a UTXO set in the store and an L1 that derives and signs.
type SpendingWallet struct {
	spend   sync.Mutex // held from BuildPayment through Commit
	derive  sync.Mutex
	l1      gate.L1
	store   gate.Store
	privkey gate.Privkey
	chain   *doge.ChainParams
	maxFee  gate.Koinu
	log     logger.Logger
}

func NewSpendingWallet(privkey gate.Privkey, network string, maxFee gate.Koinu, l1 gate.L1, store gate.Store, log logger.Logger) (*SpendingWallet, error) {
	chain, err := doge.ChainFromNetwork(network)
	if err != nil {
		return nil, gate.NewErr(gate.BadRequest, "spending wallet: %v", err)
	}
	key, err := doge.DecodeBip32WIF(string(privkey), nil)
	if err != nil {
		return nil, gate.NewErr(gate.BadRequest, "spending wallet: bad extended key: %v", err)
	}
	defer key.Clear()
	if !key.IsPrivate() {
		return nil, gate.NewErr(gate.BadRequest, "spending wallet: an extended private key is required")
	}
	return &SpendingWallet{l1: l1, store: store, privkey: privkey, chain: chain, maxFee: maxFee, log: log}, nil
}

func (w *SpendingWallet) reserve(internal bool) (gate.Address, error) {
	w.derive.Lock()
	defer w.derive.Unlock()
	for {
		addr, _, err := w.store.ReserveReceiveAddress(internal, func(index uint32) (gate.Address, error) {
			return w.l1.MakeChildAddress(w.privkey, index, internal)
		})
		if errors.Is(err, doge.ErrInvalidChild) {
			continue
		}
		return addr, err
	}
}

// ReceiveAddress returns a fresh address to fund the wallet with.
func (w *SpendingWallet) ReceiveAddress() (gate.Address, error) {
	return w.reserve(false)
}

func (w *SpendingWallet) Balance() (gate.Koinu, error) {
	utxos, err := w.store.ListUnspentUTXOs()
	if err != nil {
		return 0, err
	}
	var total gate.Koinu
	for _, u := range utxos {
		total += u.Value
	}
	return total, nil
}

func (w *SpendingWallet) LockSpend() func() {
	w.spend.Lock()
	return w.spend.Unlock
}

// BuildPayment selects coins and signs a payment of amount to addr. The
// UTXO set is not touched until Commit.
func (w *SpendingWallet) BuildPayment(amount gate.Koinu, to gate.Address) (gate.FundingResult, error) {
	if !doge.ValidateP2PKH(to, w.chain) {
		return gate.FundingResult{}, gate.NewErr(gate.InvalidTxn, "pay-to address %s is not a P2PKH address on this network", to)
	}
	req := gate.TxnRequest{
		PayTo:     to,
		Amount:    amount,
		MaxFee:    w.maxFee,
		NewChange: func() (gate.Address, error) { return w.reserve(true) },
		Privkey:   w.privkey,
	}
	res, err := gate.CreateTxn(req, gate.NewUTXOSource(w.store), w.l1, w.log)
	if err != nil {
		return gate.FundingResult{}, err
	}
	if !res.Funded {
		w.log.Info("payment not funded", map[string]any{"amount": int64(amount), "shortfall": int64(res.Shortfall)})
	}
	return res, nil
}

// Commit marks the payment's inputs spent and adds its change output.
func (w *SpendingWallet) Commit(tx gate.NewTxn) error {
	raw, err := doge.HexDecode(tx.TxnHex)
	if err != nil {
		return gate.NewErr(gate.InvalidTxn, "commit: bad transaction hex: %v", err)
	}
	txid := doge.TxHashHex(raw)
	var change *gate.UTXO
	if tx.ChangeVOut >= 0 && tx.ChangeAmount > 0 {
		index, internal, found, err := w.store.LookupReceiveAddress(tx.Change)
		if err != nil {
			return err
		}
		if !found {
			return gate.NewErr(gate.InvalidTxn, "commit: change address %s is not ours", tx.Change)
		}
		script, err := doge.PayToAddressScript(tx.Change, w.chain)
		if err != nil {
			return gate.NewErr(gate.InvalidTxn, "commit: %v", err)
		}
		change = &gate.UTXO{
			TxID:          txid,
			VOut:          tx.ChangeVOut,
			Value:         tx.ChangeAmount,
			ScriptHex:     doge.HexEncode(script),
			ScriptType:    doge.ScriptTypeP2PKH,
			ScriptAddress: tx.Change,
			KeyIndex:      index,
			IsInternal:    internal,
		}
	}
	if err := w.store.SpendUTXOs(tx.Inputs, txid, change); err != nil {
		return err
	}
	w.log.Info("payment committed", map[string]any{"txid": txid, "fee": int64(tx.FeeAmount)})
	return nil
}

// IngestTx records every output of raw that pays one of our addresses,
// and returns their total.
func (w *SpendingWallet) IngestTx(raw []byte) (gate.Koinu, error) {
	tx, err := doge.DecodeTx(raw)
	if err != nil {
		return 0, gate.NewErr(gate.InvalidTxn, "cannot decode transaction: %v", err)
	}
	var total gate.Koinu
	for vout, out := range tx.VOut {
		kind, addr := doge.ClassifyScript(out.Script, w.chain)
		if kind != doge.ScriptTypeP2PKH || out.Value <= 0 {
			continue
		}
		index, internal, found, err := w.store.LookupReceiveAddress(addr)
		if err != nil {
			return 0, err
		}
		if !found {
			continue
		}
		err = w.store.AddUTXO(gate.UTXO{
			TxID:          tx.TxID,
			VOut:          vout,
			Value:         gate.Koinu(out.Value),
			ScriptHex:     doge.HexEncode(out.Script),
			ScriptType:    doge.ScriptTypeP2PKH,
			ScriptAddress: addr,
			KeyIndex:      index,
			IsInternal:    internal,
		})
		if err != nil {
			return 0, err
		}
		total += gate.Koinu(out.Value)
	}
	return total, nil
}
