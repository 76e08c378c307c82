package wallet

import (
	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/doge"
)

// Keys is a newly generated master key: Privkey goes in client.privkey,
// WatchingKey (its public half) can serve as a gateway watching key.
type Keys struct {
	Address     gate.Address
	Privkey     gate.Privkey
	WatchingKey string
}

// GenerateKeys asks l1 for a new master key. Regtest shares the testnet
// key prefixes.
func GenerateKeys(l1 gate.L1, network string) (Keys, error) {
	if _, err := doge.ChainFromNetwork(network); err != nil {
		return Keys{}, gate.NewErr(gate.BadRequest, "keygen: %v", err)
	}
	addr, priv, err := l1.MakeAddress(network != "mainnet")
	if err != nil {
		return Keys{}, err
	}
	key, err := doge.DecodeBip32WIF(string(priv), nil)
	if err != nil {
		return Keys{}, gate.NewErr(gate.L1Error, "keygen: generated key does not decode: %v", err)
	}
	defer key.Clear()
	pub, err := doge.EncodeBip32WIF(key.Public())
	if err != nil {
		return Keys{}, gate.NewErr(gate.L1Error, "keygen: %v", err)
	}
	return Keys{Address: addr, Privkey: priv, WatchingKey: pub}, nil
}
