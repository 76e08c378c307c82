package dogecoin

import (
	"crypto/rand"
	"sync"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/doge"
)

// interface guard ensures L1Mock implements gate.L1
var _ gate.L1 = &L1Mock{}

// NewL1Mock returns a gate.L1 that does key derivation and signing in Go
// (keys are derived as key/chain/index, not the BIP44 path libdogecoin
// uses) and keeps sent transactions in memory instead of relaying them.
func NewL1Mock(chain *doge.ChainParams) *L1Mock {
	return &L1Mock{chain: chain}
}

type L1Mock struct {
	chain    *doge.ChainParams
	FeePerKB gate.Koinu // EstimateFee result; zero means unavailable
	SendErr  error      // returned by Send when set

	mu   sync.Mutex
	sent []string
}

func (l *L1Mock) Sent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.sent...)
}

func (l *L1Mock) MakeAddress(isTestNet bool) (gate.Address, gate.Privkey, error) {
	chain := &doge.DogeMainNetChain
	if isTestNet {
		chain = &doge.DogeTestNetChain
	}
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return "", "", gate.NewErr(gate.L1Error, "cannot read random seed: %v", err)
	}
	defer clear(seed)
	key, err := doge.NewBip32MasterKey(seed, chain)
	if err != nil {
		return "", "", gate.NewErr(gate.L1Error, "cannot make master key: %v", err)
	}
	defer key.Clear()
	addr, err := doge.PubKeyToP2PKH(key.GetECPubKey(), chain)
	if err != nil {
		return "", "", gate.NewErr(gate.L1Error, "cannot make address: %v", err)
	}
	wif, err := doge.EncodeBip32WIF(key)
	if err != nil {
		return "", "", gate.NewErr(gate.L1Error, "cannot encode master key: %v", err)
	}
	return addr, gate.Privkey(wif), nil
}

func (l *L1Mock) childKey(privkey gate.Privkey, keyIndex uint32, isInternal bool) (*doge.Bip32Key, error) {
	root, err := doge.DecodeBip32WIF(string(privkey), nil)
	if err != nil {
		return nil, gate.NewErr(gate.L1Error, "cannot decode extended key: %v", err)
	}
	defer root.Clear()
	var chainIndex uint32
	if isInternal {
		chainIndex = 1
	}
	branch, err := root.DeriveChild(chainIndex)
	if err != nil {
		return nil, err
	}
	defer branch.Clear()
	return branch.DeriveChild(keyIndex)
}

func (l *L1Mock) MakeChildAddress(privkey gate.Privkey, keyIndex uint32, isInternal bool) (gate.Address, error) {
	child, err := l.childKey(privkey, keyIndex, isInternal)
	if err != nil {
		return "", err
	}
	defer child.Clear()
	return doge.PubKeyToP2PKH(child.GetECPubKey(), l.chain)
}

func (l *L1Mock) MakeTransaction(inputs []gate.UTXO, outputs []gate.NewTxOut, fee gate.Koinu, change gate.Address, private_key gate.Privkey) (gate.NewTxn, error) {
	totalIn, totalOut, err := checkAmounts(inputs, outputs, fee)
	if err != nil {
		return gate.NewTxn{}, err
	}
	tx := doge.BlockTx{Version: 1}
	prevScripts := make([][]byte, len(inputs))
	for n, utxo := range inputs {
		txid, err := doge.HexDecode(utxo.TxID)
		if err != nil || len(txid) != 32 {
			return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "bad input txid: %v", utxo.TxID)
		}
		// txids are displayed byte-reversed
		for i, j := 0, len(txid)-1; i < j; i, j = i+1, j-1 {
			txid[i], txid[j] = txid[j], txid[i]
		}
		prevScripts[n], err = doge.HexDecode(utxo.ScriptHex)
		if err != nil {
			return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "bad input script: %v", utxo)
		}
		tx.VIn = append(tx.VIn, doge.BlockTxIn{TxID: txid, VOut: uint32(utxo.VOut), Sequence: 0xffffffff})
	}
	for _, out := range outputs {
		script, err := doge.PayToAddressScript(out.ScriptAddress, l.chain)
		if err != nil {
			return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "cannot pay to %s: %v", out.ScriptAddress, err)
		}
		tx.VOut = append(tx.VOut, doge.BlockTxOut{Value: int64(out.Amount), Script: script})
	}
	changeAmt := totalIn - totalOut - fee
	changeVOut := -1
	if changeAmt > 0 {
		script, err := doge.PayToAddressScript(change, l.chain)
		if err != nil {
			return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "bad change address %s: %v", change, err)
		}
		changeVOut = len(tx.VOut)
		tx.VOut = append(tx.VOut, doge.BlockTxOut{Value: int64(changeAmt), Script: script})
	}

	for n, utxo := range inputs {
		child, err := l.childKey(private_key, utxo.KeyIndex, utxo.IsInternal)
		if err != nil {
			return gate.NewTxn{}, err
		}
		ecKey, err := child.GetECPrivKey()
		child.Clear()
		if err != nil {
			return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "cannot sign: %v", err)
		}
		err = doge.SignP2PKHInput(&tx, n, prevScripts[n], ecKey)
		clear(ecKey)
		if err != nil {
			return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "cannot sign input %d: %v", n, err)
		}
		if !doge.VerifyP2PKHInput(tx, n, prevScripts[n]) {
			return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "HD private key doesn't match UTXO ScriptAddress: %v", utxo)
		}
	}
	return gate.NewTxn{
		TxnHex:       doge.HexEncode(doge.EncodeTx(tx)),
		TotalIn:      totalIn,
		TotalOut:     totalOut,
		FeeAmount:    fee,
		ChangeAmount: changeAmt,
		ChangeVOut:   changeVOut,
	}, nil
}

func (l *L1Mock) Send(txnHex string) (string, error) {
	if l.SendErr != nil {
		return "", l.SendErr
	}
	raw, err := doge.HexDecode(txnHex)
	if err != nil {
		return "", gate.NewErr(gate.InvalidTxn, "send: bad hex: %v", err)
	}
	tx, err := doge.DecodeTx(raw)
	if err != nil {
		return "", gate.NewErr(gate.InvalidTxn, "send: %v", err)
	}
	l.mu.Lock()
	l.sent = append(l.sent, txnHex)
	l.mu.Unlock()
	return tx.TxID, nil
}

func (l *L1Mock) EstimateFee(confirmTarget int) (gate.Koinu, error) {
	if l.FeePerKB == 0 {
		return 0, gate.NewErr(gate.NotAvailable, "estimatefee: no estimate")
	}
	return l.FeePerKB, nil
}
