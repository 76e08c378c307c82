package gate

import (
	"fmt"

	"github.com/dogecoinfoundation/paygate/pkg/doge"
	"github.com/shopspring/decimal"
)

type Address = doge.Address
type Privkey string
type ScriptType = doge.ScriptType

// Koinu is an amount in the smallest Dogecoin unit (1 DOGE = 1e8 Koinu).
type Koinu int64

func (k Koinu) Doge() decimal.Decimal {
	return doge.KoinuToDecimal(int64(k))
}

func (k Koinu) String() string {
	return fmt.Sprintf("%s DOGE", k.Doge().String())
}

const (
	TxnDustLimit         Koinu = 1_000_000 // 0.01 DOGE
	TxnFeePerByte        Koinu = 1_000     // 0.01 DOGE per KB
	TxnRecommendedMinFee Koinu = 1_000_000 // 0.01 DOGE
	TxnDefaultMaxFee     Koinu = 100_000_000
)

// UTXO is an Unspent Transaction Output held by the spending wallet.
type UTXO struct {
	TxID          string     // part of unique key
	VOut          int        // part of unique key
	Value         Koinu      // amount available to spend
	ScriptHex     string     // locking script, hex-encoded
	ScriptType    ScriptType // 'p2pkh' etc
	ScriptAddress Address    // P2PKH address required to spend this UTXO
	KeyIndex      uint32     // HD key-index of ScriptAddress (needed to sign)
	IsInternal    bool       // HD internal/external flag of ScriptAddress
	SpendTxID     string     // TxID of the spending transaction, once committed
}

type NewTxOut struct {
	ScriptType    ScriptType
	Amount        Koinu
	ScriptAddress Address
}

// NewTxn is a built (signed) transaction that has not been committed.
type NewTxn struct {
	TxnHex       string
	TotalIn      Koinu
	TotalOut     Koinu
	FeeAmount    Koinu
	ChangeAmount Koinu
	ChangeVOut   int // index of the change output, -1 if none
	Inputs       []UTXO
	Change       Address
}

// FundingResult distinguishes a funded payment from a shortfall.
type FundingResult struct {
	Funded    bool
	Tx        NewTxn
	Shortfall Koinu // only when !Funded
}

func Funded(tx NewTxn) FundingResult {
	return FundingResult{Funded: true, Tx: tx}
}

func Unfunded(shortfall Koinu) FundingResult {
	return FundingResult{Shortfall: shortfall}
}
