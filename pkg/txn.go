package gate

import (
	"github.com/dogecoinfoundation/paygate/pkg/doge"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
)

// We may need to use addUTXOsUpToAmount during calculateFee (source, inputs, used)
// and we need to generate the tx hex once the fee is stable.
type txState struct {
	lib       L1         // L1 for fee estimates
	inputs    []UTXO     // accumulated tx inputs (from addUTXOsUpToAmount)
	outputs   []NewTxOut // the payment output
	outputSum Koinu      // sum of tx outputs
	used      UTXOSet    // accumulated tx inputs (as a set)
	source    UTXOSource // source of available UTXOs
	shortfall Koinu      // set when the source runs dry
	log       logger.Logger
}

// TxnRequest describes a single payment to build. NewChange is called at
// most once, and only when the funded transaction has change to return.
type TxnRequest struct {
	PayTo     Address
	Amount    Koinu
	MaxFee    Koinu
	NewChange func() (Address, error)
	Privkey   Privkey
}

// CreateTxn selects inputs from source to pay req.Amount plus fee, and
// signs the result through lib. Running out of UTXOs is not an error:
// the result is Unfunded with the missing amount.
func CreateTxn(req TxnRequest, source UTXOSource, lib L1, log logger.Logger) (FundingResult, error) {
	state := &txState{
		lib:    lib,
		used:   NewUTXOSet(),
		source: source,
		log:    log,
	}
	if err := addOutput(req.PayTo, req.Amount, state); err != nil {
		return FundingResult{}, err
	}
	maxFee := req.MaxFee
	if maxFee <= 0 {
		maxFee = TxnDefaultMaxFee
	}
	if err := addUTXOsUpToAmount(state.outputSum, state); err != nil {
		return unfundedOr(state, err)
	}
	fee, err := calculateFee(maxFee, state)
	if err != nil {
		return unfundedOr(state, err)
	}
	fee, change, err := settleChange(req, fee, state)
	if err != nil {
		return FundingResult{}, err
	}
	tx, err := lib.MakeTransaction(state.inputs, state.outputs, fee, change, req.Privkey)
	if err != nil {
		return FundingResult{}, err
	}
	tx.Inputs = state.inputs
	tx.Change = change
	return Funded(tx), nil
}

// settleChange folds change below the dust limit into the fee, since an
// output that small cannot be relayed. Otherwise it asks for a change address.
func settleChange(req TxnRequest, fee Koinu, state *txState) (Koinu, Address, error) {
	left := sumInputs(state.inputs) - state.outputSum - fee
	if left <= 0 {
		return fee, "", nil
	}
	if left < TxnDustLimit {
		state.log.Debug("folding dust change into fee", map[string]any{"change": int64(left), "fee": int64(fee)})
		return fee + left, "", nil
	}
	if req.NewChange == nil {
		return 0, "", NewErr(InvalidTxn, "transaction has %s change but no change address", left)
	}
	change, err := req.NewChange()
	if err != nil {
		return 0, "", err
	}
	return fee, change, nil
}

func unfundedOr(state *txState, err error) (FundingResult, error) {
	if IsError(err, InsufficientFunds) {
		return Unfunded(state.shortfall), nil
	}
	return FundingResult{}, err
}

func addUTXOsUpToAmount(amount Koinu, state *txState) error {
	current := sumInputs(state.inputs)
	for current < amount {
		utxo, err := state.source.NextUnspentUTXO(state.used)
		if err != nil {
			state.shortfall = amount - current
			return err
		}
		state.inputs = append(state.inputs, utxo)
		state.used.Add(utxo.TxID, utxo.VOut)
		current += utxo.Value
	}
	return nil
}

func sumInputs(inputs []UTXO) Koinu {
	var total Koinu
	for _, utxo := range inputs {
		total += utxo.Value
	}
	return total
}

func addOutput(payTo Address, amount Koinu, state *txState) error {
	if payTo == "" {
		return NewErr(InvalidTxn, "invalid transaction output: missing 'to' address")
	}
	if amount <= 0 {
		return NewErr(InvalidTxn, "invalid transaction output: amount is negative or zero")
	}
	state.outputs = append(state.outputs, NewTxOut{
		ScriptType:    doge.ScriptTypeP2PKH,
		Amount:        amount,
		ScriptAddress: payTo,
	})
	state.outputSum += amount
	return nil
}

// Calculate the size of a P2PKH transaction.
func sizeOfP2PKH(nIn int, nOut int) int64 {
	// inspired by https://bitcoinops.org/en/tools/calc-size/
	// max size for up to 252 inputs and outputs
	return 10 + int64(nIn)*148 + int64(nOut)*34
}

// Get fee estimate from Core `estimatefee` if available,
// otherwise use the base consensus TxnFeePerByte.
func estimateFeePerByte(lib L1, log logger.Logger) Koinu {
	feePerKB, err := lib.EstimateFee(6)
	if err != nil {
		log.Debug("estimatefee unavailable, using base fee", map[string]any{"error": err.Error()})
		return TxnFeePerByte
	}
	perByte := feePerKB / 1000
	if perByte < TxnFeePerByte {
		perByte = TxnFeePerByte
	}
	return perByte
}

// Calculate fee based on transaction size, within fee limits.
func feeForTxn(sizeBytes int64, feePerByte Koinu, maxFee Koinu) Koinu {
	fee := feePerByte * Koinu(sizeBytes)
	fee = max(fee, TxnRecommendedMinFee)
	return min(fee, maxFee)
}

// Calculate the Fee based on the size of the transaction.
// Make sure the UTXO Inputs cover that fee as well as all Outputs:
// add new UTXOs to cover the fee if necessary (and loop.)
func calculateFee(maxFee Koinu, state *txState) (Koinu, error) {
	attempt := 0
	feePerByte := estimateFeePerByte(state.lib, state.log)
	for {
		sizeBytes := sizeOfP2PKH(len(state.inputs), len(state.outputs)+1) // +1 for Change output
		fee := feeForTxn(sizeBytes, feePerByte, maxFee)
		prevInputs := len(state.inputs)
		if err := addUTXOsUpToAmount(state.outputSum+fee, state); err != nil {
			return 0, err
		}
		// If we added an input, it changes the size of the transaction.
		if len(state.inputs) > prevInputs {
			attempt += 1
			if attempt > 10 {
				return 0, NewErr(InvalidTxn, "too many attempts to find a stable fee: 10 attempts were made")
			}
			continue
		}
		return fee, nil
	}
}
