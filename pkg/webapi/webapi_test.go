package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/client"
	"github.com/dogecoinfoundation/paygate/pkg/doge"
	"github.com/dogecoinfoundation/paygate/pkg/dogecoin"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
	"github.com/dogecoinfoundation/paygate/pkg/metrics"
	"github.com/dogecoinfoundation/paygate/pkg/store"
	"github.com/dogecoinfoundation/paygate/pkg/wallet"
	"github.com/dogecoinfoundation/paygate/pkg/weather"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BIP32 test vector 1: the server watches the m/0H xpub, the client
// spends from the master key.
const (
	testXprv = "xprv9s21ZrQH143K3QTDL4LXw2F7HEK3wJUD2nW2nRk4stbPy6cq3jPPqjiChkVvvNKmPGJxWUtg6LnF5kejMRNNU3TGtRBeJgk33yuGBxrMPHi"
	testXpub = "xpub68Gmy5EdvgibQVfPdqkBBCHxA5htiqg55crXYuXoQRKfDBFA1WEjWgP6LHhwBZeNK1VTsfTFUHCdrfp1bgwQ9xv5ski8PX9rL2dZXvgGDnw"
)

type testRig struct {
	server  *httptest.Server
	l1      *dogecoin.L1Mock
	spender *wallet.SpendingWallet
	flow    *client.Flow
	url     string
}

func newTestRig(t *testing.T) *testRig {
	conf := gate.TestConfig()

	// upstream forecast service: "0,0" has no current conditions
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/0,0") {
			w.Write([]byte(`{"latitude":0,"longitude":0}`))
			return
		}
		w.Write([]byte(`{"currently":{"summary":"Clear","temperature":61.2}}`))
	}))
	t.Cleanup(upstream.Close)
	conf.Weather.BaseURL = upstream.URL
	conf.Weather.APIKey = "KEY"

	serverStore, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("server store: %v", err)
	}
	t.Cleanup(serverStore.Close)
	watching, err := wallet.NewWatchingWallet(testXpub, conf.Gateway.Network, serverStore)
	if err != nil {
		t.Fatalf("watching wallet: %v", err)
	}

	l1 := dogecoin.NewL1Mock(&doge.DogeRegTestChain)
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	opts := []gate.Option{gate.WithMetrics(rec)}

	signer := gate.NewMerchantSigner(conf.Gateway.MerchantSecret)
	price, _ := gate.NewPriceQuote(gate.Koinu(conf.Gateway.Price))
	issuer := gate.NewPaymentRequestIssuer(watching, signer, conf.Gateway, opts...)
	validator := gate.NewPaymentValidator(watching, signer, conf.Gateway, opts...)
	broadcaster := gate.NewPaymentBroadcaster(l1, conf.Gateway, opts...)
	startService(t, broadcaster.Run)

	gateway := gate.NewServerGateway(price, issuer, validator, broadcaster, weather.NewForecastProvider(conf, logger.NoopLogger{}), conf.Gateway, opts...)
	api, err := NewWebAPI(conf, gateway, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger.NoopLogger{})
	if err != nil {
		t.Fatalf("NewWebAPI: %v", err)
	}
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)

	clientStore, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("client store: %v", err)
	}
	t.Cleanup(clientStore.Close)
	spender, err := wallet.NewSpendingWallet(testXprv, conf.Gateway.Network, gate.TxnDefaultMaxFee, l1, clientStore, logger.NoopLogger{})
	if err != nil {
		t.Fatalf("spending wallet: %v", err)
	}
	flow := client.NewFlow(spender, client.NewHTTPTransport(5*time.Second), conf.Gateway.Network, conf.Client, nil)

	return &testRig{server: server, l1: l1, spender: spender, flow: flow, url: server.URL + "/api"}
}

// startService runs a conductor-style service for the life of the test.
func startService(t *testing.T, run func(started, stopped chan bool, stop chan context.Context) error) {
	started, stopped, stop := make(chan bool), make(chan bool), make(chan context.Context)
	if err := run(started, stopped, stop); err != nil {
		t.Fatalf("service did not start: %v", err)
	}
	<-started
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stop <- ctx
		<-stopped
	})
}

// fund pays value to a fresh client address, as if seen on chain.
func (r *testRig) fund(t *testing.T, value int64) {
	addr, err := r.spender.ReceiveAddress()
	if err != nil {
		t.Fatalf("ReceiveAddress: %v", err)
	}
	script, err := doge.PayToAddressScript(addr, &doge.DogeRegTestChain)
	if err != nil {
		t.Fatalf("PayToAddressScript: %v", err)
	}
	tx := doge.BlockTx{
		Version: 1,
		VIn:     []doge.BlockTxIn{{TxID: bytes.Repeat([]byte{7}, 32), Sequence: 0xffffffff}},
		VOut:    []doge.BlockTxOut{{Value: value, Script: script}},
	}
	if _, err := r.spender.IngestTx(doge.EncodeTx(tx)); err != nil {
		t.Fatalf("IngestTx: %v", err)
	}
}

func (r *testRig) waitForBroadcasts(t *testing.T, n int) []string {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sent := r.l1.Sent(); len(sent) >= n {
			return sent
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d broadcasts, got %d", n, len(r.l1.Sent()))
	return nil
}

func post(t *testing.T, url string, parts map[string]string) *http.Response {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for name, value := range parts {
		w.WriteField(name, value)
	}
	w.Close()
	res, err := http.Post(url, w.FormDataContentType(), buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return res
}

func decodeChallenge(t *testing.T, res *http.Response) gate.PaymentChallenge {
	defer res.Body.Close()
	if res.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", res.StatusCode)
	}
	var body bytes.Buffer
	body.ReadFrom(res.Body)
	c, err := gate.DecodePaymentRequest(body.Bytes())
	if err != nil {
		t.Fatalf("DecodePaymentRequest: %v", err)
	}
	return c
}

func TestHello(t *testing.T) {
	r := newTestRig(t)
	res, err := http.Get(r.server.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer res.Body.Close()
	var body bytes.Buffer
	body.ReadFrom(res.Body)
	if res.StatusCode != 200 || body.String() != "hello" {
		t.Fatalf("unexpected response %d %q", res.StatusCode, body.String())
	}
}

func TestChallengeHeaders(t *testing.T) {
	r := newTestRig(t)
	res := post(t, r.url, map[string]string{"request": "37.8267,-122.423"})
	h := res.Header
	if h.Get("Content-Type") != gate.PaymentRequestContentType {
		t.Errorf("Content-Type: %s", h.Get("Content-Type"))
	}
	if h.Get("Cache-Control") != "no-cache, no-store" || h.Get("Expires") != "0" || h.Get("Content-Transfer-Encoding") != "binary" {
		t.Errorf("unexpected cache headers: %v", h)
	}
	c := decodeChallenge(t, res)
	if c.Amount != 10_000 || c.Network != "regtest" {
		t.Errorf("unexpected challenge %+v", c)
	}
	if c.PaymentURL != r.url {
		t.Errorf("payment url %s, want %s", c.PaymentURL, r.url)
	}
	if !doge.ValidateP2PKH(c.Address, &doge.DogeRegTestChain) {
		t.Errorf("challenge address is not a regtest P2PKH address: %s", c.Address)
	}

	// every challenge gets its own address
	again := decodeChallenge(t, post(t, r.url, map[string]string{"request": "37.8267,-122.423"}))
	if again.Address == c.Address {
		t.Errorf("address reused across challenges: %s", c.Address)
	}
}

func TestPayForForecast(t *testing.T) {
	r := newTestRig(t)
	r.fund(t, 500_000_000)

	res, err := r.flow.Request(context.Background(), r.url, "37.8267,-122.423")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if res.Status != 200 {
		t.Fatalf("expected 200, got %d: %s", res.Status, res.Body)
	}
	var currently map[string]any
	if err := json.Unmarshal(res.Body, &currently); err != nil || currently["summary"] != "Clear" {
		t.Fatalf("unexpected body %s (%v)", res.Body, err)
	}
	if res.AckMemo != "thanks" || res.Paid != 10_000 {
		t.Errorf("unexpected ack %q paid %d", res.AckMemo, res.Paid)
	}

	sent := r.waitForBroadcasts(t, 1)
	raw, _ := doge.HexDecode(sent[0])
	if doge.TxHashHex(raw) != res.TxID {
		t.Errorf("broadcast %s, client paid with %s", doge.TxHashHex(raw), res.TxID)
	}

	// the payment was committed: the wallet now holds only the change
	balance, err := r.spender.Balance()
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	tx, _ := doge.DecodeTx(raw)
	fee := gate.Koinu(500_000_000) - 10_000 - balance
	if balance <= 0 || fee <= 0 || len(tx.VOut) != 2 {
		t.Errorf("unexpected balance %d after paying (fee %d, outputs %d)", balance, fee, len(tx.VOut))
	}
}

func TestUnderpaymentGetsFreshChallenge(t *testing.T) {
	r := newTestRig(t)
	r.fund(t, 500_000_000)

	c := decodeChallenge(t, post(t, r.url, map[string]string{"request": "1,2"}))
	unlock := r.spender.LockSpend()
	funding, err := r.spender.BuildPayment(c.Amount-1, c.Address)
	unlock()
	if err != nil || !funding.Funded {
		t.Fatalf("BuildPayment: %v %+v", err, funding)
	}
	raw, _ := doge.HexDecode(funding.Tx.TxnHex)
	payment, _ := gate.EncodeSubmittedPayment(gate.SubmittedPayment{Transactions: [][]byte{raw}, MerchantData: c.MerchantData})

	again := decodeChallenge(t, post(t, r.url, map[string]string{"request": "1,2", "payment": string(payment)}))
	if again.Address == c.Address {
		t.Errorf("second challenge reused address %s", c.Address)
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(r.l1.Sent()); n != 0 {
		t.Errorf("underpayment was broadcast (%d)", n)
	}
}

func TestPaymentForEarlierChallengeNotAccepted(t *testing.T) {
	r := newTestRig(t)
	r.fund(t, 500_000_000)

	first := decodeChallenge(t, post(t, r.url, map[string]string{"request": "1,2"}))
	unlock := r.spender.LockSpend()
	funding, err := r.spender.BuildPayment(first.Amount, first.Address)
	unlock()
	if err != nil || !funding.Funded {
		t.Fatalf("BuildPayment: %v %+v", err, funding)
	}
	raw, _ := doge.HexDecode(funding.Tx.TxnHex)

	second := decodeChallenge(t, post(t, r.url, map[string]string{"request": "1,2"}))
	payment, _ := gate.EncodeSubmittedPayment(gate.SubmittedPayment{Transactions: [][]byte{raw}, MerchantData: second.MerchantData})
	again := decodeChallenge(t, post(t, r.url, map[string]string{"request": "1,2", "payment": string(payment)}))
	if again.Address == first.Address || again.Address == second.Address {
		t.Errorf("re-challenge reused address %s", again.Address)
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(r.l1.Sent()); n != 0 {
		t.Errorf("payment for another challenge was broadcast (%d)", n)
	}
}

func TestPaidButNotFound(t *testing.T) {
	r := newTestRig(t)
	r.fund(t, 500_000_000)
	before, _ := r.spender.Balance()

	_, err := r.flow.Request(context.Background(), r.url, "0,0")
	if !gate.IsError(err, gate.Aborted) {
		t.Fatalf("expected aborted after 404, got %v", err)
	}
	// the payment is relayed anyway; the client did not commit it
	r.waitForBroadcasts(t, 1)
	after, _ := r.spender.Balance()
	if after != before {
		t.Errorf("client committed a payment for a 404: %d -> %d", before, after)
	}
}

func TestMalformedRequests(t *testing.T) {
	r := newTestRig(t)
	cases := []struct {
		name  string
		parts map[string]string
	}{
		{"bad latlng", map[string]string{"request": "north,south"}},
		{"missing request part", map[string]string{"payment": "{}"}},
		{"payment not json", map[string]string{"request": "1,2", "payment": "not json"}},
	}
	for _, tc := range cases {
		res := post(t, r.url, tc.parts)
		res.Body.Close()
		if res.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("%s: expected 422, got %d", tc.name, res.StatusCode)
		}
	}

	// a verifiable challenge answered with bytes that are not a transaction
	c := decodeChallenge(t, post(t, r.url, map[string]string{"request": "1,2"}))
	junk, _ := gate.EncodeSubmittedPayment(gate.SubmittedPayment{Transactions: [][]byte{{1, 2}}, MerchantData: c.MerchantData})
	res := post(t, r.url, map[string]string{"request": "1,2", "payment": string(junk)})
	res.Body.Close()
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("undecodable transaction: expected 422, got %d", res.StatusCode)
	}

	res, err := http.Post(r.url, "text/plain", strings.NewReader("1,2"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("non-multipart: expected 422, got %d", res.StatusCode)
	}
}

func TestPaymentQR(t *testing.T) {
	r := newTestRig(t)
	c := decodeChallenge(t, post(t, r.url, map[string]string{"request": "1,2"}))

	res, err := http.Get(r.server.URL + "/pay/" + string(c.Address) + "/qr.png?amount=10000&fg=000000&bg=ffffff")
	if err != nil {
		t.Fatalf("GET qr: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != 200 || res.Header.Get("Content-Type") != "image/png" {
		t.Errorf("unexpected qr response %d %s", res.StatusCode, res.Header.Get("Content-Type"))
	}

	for _, path := range []string{"/pay/notanaddress/qr.png", "/pay/" + string(c.Address) + "/qr.png?amount=-1"} {
		res, err := http.Get(r.server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, res.StatusCode)
		}
	}
}

func TestMetricsExposed(t *testing.T) {
	r := newTestRig(t)
	decodeChallenge(t, post(t, r.url, map[string]string{"request": "1,2"}))

	res, err := http.Get(r.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer res.Body.Close()
	var body bytes.Buffer
	body.ReadFrom(res.Body)
	if !strings.Contains(body.String(), `paygate_events_total{network="regtest",type="challenges_issued"} 1`) {
		t.Errorf("challenge counter missing from /metrics:\n%s", body.String())
	}
}

func TestHttpStatusForError(t *testing.T) {
	cases := map[gate.ErrorCode]int{
		gate.MalformedRequest:    422,
		gate.NotFound:            404,
		gate.UpstreamUnavailable: 404,
		gate.AddressExhausted:    500,
		gate.NotAvailable:        503,
		gate.ErrorCode("other"):  500,
	}
	for code, want := range cases {
		if got := HttpStatusForError(code); got != want {
			t.Errorf("%s: got %d, want %d", code, got, want)
		}
	}
}
