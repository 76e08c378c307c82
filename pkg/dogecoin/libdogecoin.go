package dogecoin

import (
	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/doge"

	"github.com/dogeorg/go-libdogecoin"
)

// Signature hash types/flags from libdogecoin
const (
	SIGHASH_ALL          = 1
	SIGHASH_NONE         = 2
	SIGHASH_SINGLE       = 3
	SIGHASH_ANYONECANPAY = 0x80 // flag
)

// interface guard ensures L1Libdogecoin implements gate.L1
var _ gate.L1 = L1Libdogecoin{}

// NewL1Libdogecoin returns a gate.L1 that derives keys and signs with
// libdogecoin. Relay and fee estimates go to fallback (dogecoin core).
func NewL1Libdogecoin(fallback gate.L1) (L1Libdogecoin, error) {
	return L1Libdogecoin{fallback: fallback}, nil
}

type L1Libdogecoin struct {
	fallback gate.L1
}

func koinuString(k gate.Koinu) string {
	return doge.KoinuToDecimal(int64(k)).String()
}

func (l L1Libdogecoin) MakeAddress(isTestNet bool) (gate.Address, gate.Privkey, error) {
	libdogecoin.W_context_start()
	defer libdogecoin.W_context_stop()
	priv, pub := libdogecoin.W_generate_hd_master_pub_keypair(isTestNet)
	if priv == "" || pub == "" {
		return "", "", gate.NewErr(gate.L1Error, "cannot generate_hd_master_pub_keypair")
	}
	return gate.Address(pub), gate.Privkey(priv), nil
}

func (l L1Libdogecoin) MakeChildAddress(privkey gate.Privkey, keyIndex uint32, isInternal bool) (gate.Address, error) {
	libdogecoin.W_context_start()
	defer libdogecoin.W_context_stop()
	// returns the extended public key of the child node, which we then
	// hash down to its P2PKH address.
	hd_node_pub := libdogecoin.W_get_derived_hd_address(string(privkey), 0, isInternal, keyIndex, false)
	if hd_node_pub == "" {
		return "", gate.NewErr(gate.L1Error, "cannot get_derived_hd_address")
	}
	pkh := libdogecoin.W_generate_derived_hd_pub_key(hd_node_pub)
	if pkh == "" {
		return "", gate.NewErr(gate.L1Error, "cannot generate_derived_hd_pub_key")
	}
	return gate.Address(pkh), nil
}

func (l L1Libdogecoin) MakeTransaction(inputs []gate.UTXO, outputs []gate.NewTxOut, fee gate.Koinu, change gate.Address, private_key gate.Privkey) (gate.NewTxn, error) {
	libdogecoin.W_context_start()
	defer libdogecoin.W_context_stop()

	totalIn, totalOut, err := checkAmounts(inputs, outputs, fee)
	if err != nil {
		return gate.NewTxn{}, err
	}

	tx := libdogecoin.W_start_transaction()
	defer libdogecoin.W_clear_transaction(tx)

	for _, utxo := range inputs {
		if libdogecoin.W_add_utxo(tx, utxo.TxID, utxo.VOut) != 1 {
			return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "cannot add transaction input: %v", utxo)
		}
	}

	var anyOutputAddress string
	for _, out := range outputs {
		if libdogecoin.W_add_output(tx, string(out.ScriptAddress), koinuString(out.Amount)) != 1 {
			return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "cannot add transaction output: %v", out)
		}
		anyOutputAddress = string(out.ScriptAddress)
	}

	// finalize adds a change output (last) when there is any change.
	// the destination address is only used to pick main-net or test-net.
	tx_hex := libdogecoin.W_finalize_transaction(tx, anyOutputAddress, koinuString(fee), koinuString(totalIn), string(change))
	if tx_hex == "" {
		return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "cannot finalize_transaction")
	}
	change_amt := totalIn - totalOut - fee
	change_vout := -1
	if change_amt > 0 {
		change_vout = len(outputs)
	}

	// Each input is signed separately: each UTXO is paid to a different
	// HD child address.
	for n, utxo := range inputs {
		hd_node_pk := libdogecoin.W_get_derived_hd_address(string(private_key), 0, utxo.IsInternal, utxo.KeyIndex, true)
		if hd_node_pk == "" {
			return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "cannot get_derived_hd_address priv: %v", utxo)
		}
		ec_privkey_wif, err := doge.WIFFromBip32(hd_node_pk)
		if err != nil {
			return gate.NewTxn{}, err
		}
		// Verify we have the right key for the UTXO ScriptAddress.
		p2pkh_address, err := doge.AddressForWIF(ec_privkey_wif)
		if err != nil {
			return gate.NewTxn{}, err
		}
		if p2pkh_address != utxo.ScriptAddress {
			return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "HD private key doesn't match UTXO ScriptAddress: %v", utxo)
		}
		// [input_index, incoming_raw_tx, script_hex, sig_hash_type, privkey]
		tx_hex = libdogecoin.W_sign_raw_transaction(n, tx_hex, utxo.ScriptHex, SIGHASH_ALL, ec_privkey_wif)
		if tx_hex == "" {
			return gate.NewTxn{}, gate.NewErr(gate.InvalidTxn, "cannot sign_raw_transaction: %v", utxo)
		}
	}

	return gate.NewTxn{
		TxnHex:       tx_hex,
		TotalIn:      totalIn,
		TotalOut:     totalOut,
		FeeAmount:    fee,
		ChangeAmount: change_amt,
		ChangeVOut:   change_vout,
	}, nil
}

func (l L1Libdogecoin) Send(txnHex string) (txid string, err error) {
	if l.fallback != nil {
		return l.fallback.Send(txnHex)
	}
	return "", gate.NewErr(gate.NotAvailable, "send: no dogecoin core configured")
}

func (l L1Libdogecoin) EstimateFee(confirmTarget int) (feePerKB gate.Koinu, err error) {
	if l.fallback != nil {
		return l.fallback.EstimateFee(confirmTarget)
	}
	return 0, gate.NewErr(gate.NotAvailable, "estimatefee: no dogecoin core configured")
}

// checkAmounts validates that inputs cover outputs plus fee.
func checkAmounts(inputs []gate.UTXO, outputs []gate.NewTxOut, fee gate.Koinu) (totalIn, totalOut gate.Koinu, err error) {
	if len(inputs) < 1 || len(outputs) < 1 {
		return 0, 0, gate.NewErr(gate.InvalidTxn, "cannot make a txn with zero inputs or zero outputs")
	}
	for _, utxo := range inputs {
		totalIn += utxo.Value
	}
	for _, out := range outputs {
		totalOut += out.Amount
	}
	if totalIn < totalOut+fee {
		return 0, 0, gate.NewErr(gate.InvalidTxn, "inputs do not hold enough value to pay outputs plus fee: %s vs %s", totalIn, totalOut+fee)
	}
	return totalIn, totalOut, nil
}
