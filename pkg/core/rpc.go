package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/doge"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
	"github.com/shopspring/decimal"
)

// interface guard ensures L1CoreRPC implements gate.L1
var _ gate.L1 = &L1CoreRPC{}

// NewDogecoinCoreRPC returns a gate.L1 that relays transactions and reads
// fee estimates through dogecoin-core's JSON-RPC. Key and transaction
// building are left to libdogecoin.
func NewDogecoinCoreRPC(config gate.Config, log logger.Logger) *L1CoreRPC {
	return &L1CoreRPC{
		url:    fmt.Sprintf("http://%s:%d", config.Core.RPCHost, config.Core.RPCPort),
		user:   config.Core.RPCUser,
		pass:   config.Core.RPCPass,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

type L1CoreRPC struct {
	url    string
	user   string
	pass   string
	id     atomic.Uint64
	client *http.Client
	log    logger.Logger
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	Id     uint64 `json:"id"`
}
type rpcResponse struct {
	Id     uint64           `json:"id"`
	Result *json.RawMessage `json:"result"`
	Error  any              `json:"error"`
}

func (l *L1CoreRPC) request(method string, params []any, result any) error {
	body := rpcRequest{
		Method: method,
		Params: params,
		Id:     l.id.Add(1), // each request should use a unique ID
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("json-rpc marshal request: %v", err)
	}
	req, err := http.NewRequest("POST", l.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("json-rpc request: %v", err)
	}
	req.SetBasicAuth(l.user, l.pass)
	res, err := l.client.Do(req)
	if err != nil {
		return gate.NewErr(gate.NotAvailable, "json-rpc transport: %v", err)
	}
	// we MUST read all of res.Body and call res.Close,
	// otherwise the underlying connection cannot be re-used.
	defer res.Body.Close()
	res_bytes, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("json-rpc read response: %v", err)
	}
	// cannot use json.NewDecoder: "The decoder introduces its own buffering
	// and may read data from r beyond the JSON values requested."
	var rpcres rpcResponse
	err = json.Unmarshal(res_bytes, &rpcres)
	if err != nil {
		if res.StatusCode != 200 {
			return fmt.Errorf("json-rpc status code: %s", res.Status)
		}
		return fmt.Errorf("json-rpc unmarshal response: %v", err)
	}
	if rpcres.Id != body.Id {
		return fmt.Errorf("json-rpc wrong ID returned: %v vs %v", rpcres.Id, body.Id)
	}
	if rpcres.Error != nil {
		return gate.NewErr(gate.L1Error, "json-rpc error returned: %v", rpcres.Error)
	}
	if rpcres.Result == nil {
		return fmt.Errorf("json-rpc missing result")
	}
	err = json.Unmarshal(*rpcres.Result, result)
	if err != nil {
		return fmt.Errorf("json-rpc unmarshal result: %v | %v", err, string(*rpcres.Result))
	}
	return nil
}

func (l *L1CoreRPC) MakeAddress(isTestNet bool) (gate.Address, gate.Privkey, error) {
	return "", "", gate.NewErr(gate.NotAvailable, "not implemented")
}

func (l *L1CoreRPC) MakeChildAddress(privkey gate.Privkey, addressIndex uint32, isInternal bool) (gate.Address, error) {
	return "", gate.NewErr(gate.NotAvailable, "not implemented")
}

func (l *L1CoreRPC) MakeTransaction(inputs []gate.UTXO, outputs []gate.NewTxOut, fee gate.Koinu, change gate.Address, private_key gate.Privkey) (gate.NewTxn, error) {
	return gate.NewTxn{}, gate.NewErr(gate.NotAvailable, "not implemented")
}

func (l *L1CoreRPC) Send(txnHex string) (txid string, err error) {
	txn, err := doge.HexDecode(txnHex)
	if err != nil {
		return "", gate.NewErr(gate.InvalidTxn, "sendrawtransaction: could not decode txnHex")
	}
	err = l.request("sendrawtransaction", []any{txnHex}, &txid)
	if err != nil {
		return "", err
	}
	if len(txid) != 64 || !doge.IsHash(txid) {
		return "", gate.NewErr(gate.L1Error, "sendrawtransaction: did not return txid")
	}
	if hash := doge.TxHashHex(txn); txid != hash {
		l.log.Warn("sendrawtransaction: unexpected txid", map[string]any{"txid": txid, "expected": hash})
	}
	return txid, nil
}

// EstimateFee asks core for a fee rate; core answers -1 when it has no
// estimate yet.
func (l *L1CoreRPC) EstimateFee(confirmTarget int) (feePerKB gate.Koinu, err error) {
	var rate decimal.Decimal
	err = l.request("estimatefee", []any{confirmTarget}, &rate)
	if err != nil {
		return 0, err
	}
	if !rate.IsPositive() {
		return 0, gate.NewErr(gate.NotAvailable, "estimatefee: no estimate available")
	}
	return gate.Koinu(doge.DecimalToKoinu(rate)), nil
}
