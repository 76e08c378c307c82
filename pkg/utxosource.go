package gate

import "github.com/dogecoinfoundation/paygate/pkg/doge"

// Outpoint names one output of a transaction.
type Outpoint struct {
	TxID string
	VOut int
}

// UTXOSet holds the outpoints already chosen as inputs.
type UTXOSet map[Outpoint]struct{}

func NewUTXOSet() UTXOSet { return UTXOSet{} }

func (u UTXOSet) Add(txID string, vOut int) { u[Outpoint{txID, vOut}] = struct{}{} }

func (u UTXOSet) Includes(txID string, vOut int) bool {
	_, ok := u[Outpoint{txID, vOut}]
	return ok
}

// UTXOSource yields spendable UTXOs one at a time during coin selection.
type UTXOSource interface {
	NextUnspentUTXO(taken UTXOSet) (UTXO, error)
}

// Store UTXO Source used to find UTXOs to spend.
type StoreUTXOSource struct {
	store   SpendStore
	unspent []UTXO
	noMore  bool
}

var _ UTXOSource = &StoreUTXOSource{}

func NewUTXOSource(store SpendStore) UTXOSource {
	return &StoreUTXOSource{store: store}
}

func NewArrayUTXOSource(utxos []UTXO) UTXOSource {
	// Used for tests: because noMore is true, it will not access the store.
	return &StoreUTXOSource{unspent: utxos, noMore: true}
}

func (s *StoreUTXOSource) fetchMoreUTXOs() error {
	utxos, err := s.store.ListUnspentUTXOs()
	if err != nil {
		return err
	}
	// ListUnspentUTXOs returns everything at once.
	s.noMore = true
	s.unspent = append(s.unspent, utxos...)
	return nil
}

func (s *StoreUTXOSource) NextUnspentUTXO(taken UTXOSet) (UTXO, error) {
	for {
		for _, utxo := range s.unspent {
			if utxo.ScriptType == doge.ScriptTypeP2PKH && !taken.Includes(utxo.TxID, utxo.VOut) {
				return utxo, nil
			}
		}
		if !s.noMore {
			if err := s.fetchMoreUTXOs(); err != nil {
				return UTXO{}, err
			}
			continue
		}
		return UTXO{}, NewErr(InsufficientFunds, "not enough funds in wallet")
	}
}
