package wallet

import (
	"errors"
	"sync"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/doge"
)

// interface guard ensures WatchingWallet implements gate.ReceiveWallet
var _ gate.ReceiveWallet = &WatchingWallet{}

// WatchingWallet derives receive addresses from an extended public key
// (external chain 0, then the key index) and never holds a private key.
type WatchingWallet struct {
	mu       sync.Mutex
	external *doge.Bip32Key
	chain    *doge.ChainParams
	store    gate.ReceiveStore
}

// NewWatchingWallet accepts an account-level extended key; a private key
// is neutered immediately. Addresses use the network's chain regardless
// of the key's version bytes.
func NewWatchingWallet(extendedKey string, network string, store gate.ReceiveStore) (*WatchingWallet, error) {
	chain, err := doge.ChainFromNetwork(network)
	if err != nil {
		return nil, gate.NewErr(gate.BadRequest, "watching wallet: %v", err)
	}
	key, err := doge.DecodeBip32WIF(extendedKey, nil)
	if err != nil {
		return nil, gate.NewErr(gate.BadRequest, "watching wallet: bad extended key: %v", err)
	}
	pub := key.Public()
	key.Clear()
	external, err := pub.DeriveChild(0)
	if err != nil {
		return nil, gate.NewErr(gate.BadRequest, "watching wallet: cannot derive external chain: %v", err)
	}
	return &WatchingWallet{external: external, chain: chain, store: store}, nil
}

func (w *WatchingWallet) derive(index uint32) (gate.Address, error) {
	child, err := w.external.DeriveChild(index)
	if err != nil {
		return "", err
	}
	return doge.PubKeyToP2PKH(child.GetECPubKey(), w.chain)
}

// FreshReceiveAddress reserves the next unused address. Indexes that do
// not yield a valid key are skipped.
func (w *WatchingWallet) FreshReceiveAddress() (gate.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		addr, _, err := w.store.ReserveReceiveAddress(false, w.derive)
		if errors.Is(err, doge.ErrInvalidChild) {
			continue
		}
		return addr, err
	}
}

// ValueToAddress sums the outputs of a serialized transaction that pay to.
// An address this wallet never handed out is worth nothing.
func (w *WatchingWallet) ValueToAddress(raw []byte, to gate.Address) (gate.Koinu, error) {
	tx, err := doge.DecodeTx(raw)
	if err != nil {
		return 0, gate.NewErr(gate.InvalidTxn, "cannot decode transaction: %v", err)
	}
	mine, err := w.store.IsReceiveAddress(to)
	if err != nil || !mine {
		return 0, err
	}
	var total gate.Koinu
	for _, out := range tx.VOut {
		kind, addr := doge.ClassifyScript(out.Script, w.chain)
		if kind == doge.ScriptTypeP2PKH && addr == to && out.Value > 0 {
			total += gate.Koinu(out.Value)
		}
	}
	return total, nil
}
