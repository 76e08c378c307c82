package client

import (
	"context"
	"net/http"
	"time"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/doge"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
)

type State int

const (
	Init State = iota
	RequestSent
	Challenged
	PaymentSent
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case RequestSent:
		return "request-sent"
	case Challenged:
		return "challenged"
	case PaymentSent:
		return "payment-sent"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Response is the final answer to an API call. Paid and TxID are set only
// when a payment was accepted.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	Paid        gate.Koinu
	TxID        string
	AckMemo     string
}

// Flow pays for API calls out of wallet. It never retries: one request,
// at most one payment.
type Flow struct {
	wallet    gate.SpendWallet
	transport Transport
	network   string
	memo      string
	log       logger.Logger
	Now       func() time.Time
}

func NewFlow(wallet gate.SpendWallet, transport Transport, network string, conf gate.ClientConfig, log logger.Logger) *Flow {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Flow{
		wallet:    wallet,
		transport: transport,
		network:   network,
		memo:      conf.Memo,
		log:       log,
		Now:       time.Now,
	}
}

func (f *Flow) Request(ctx context.Context, url string, params string) (*Response, error) {
	balance, err := f.wallet.Balance()
	if err != nil {
		return nil, err
	}
	if balance <= 0 {
		return nil, gate.NewErr(gate.InsufficientFunds, "wallet is empty, fund it first")
	}

	f.trace(RequestSent, url)
	res, err := f.transport.Post(ctx, url, params, nil)
	if err != nil {
		return nil, err
	}
	if res.Status != http.StatusPaymentRequired {
		f.trace(Done, url)
		return res, nil
	}

	f.trace(Challenged, url)
	challenge, err := gate.DecodePaymentRequest(res.Body)
	if err != nil {
		return nil, err
	}
	if f.network != "" && challenge.Network != f.network {
		return nil, gate.NewErr(gate.MalformedRequest, "challenge is for %s, wallet is on %s", challenge.Network, f.network)
	}
	if challenge.Expired(f.Now()) {
		return nil, gate.NewErr(gate.ChallengeExpired, "challenge expired at %s", challenge.Expires.Format(time.RFC3339))
	}

	unlock := f.wallet.LockSpend()
	defer unlock()

	submitted, funding, err := f.answer(challenge)
	if err != nil {
		return nil, err
	}
	payment, err := gate.EncodeSubmittedPayment(submitted)
	if err != nil {
		return nil, err
	}

	f.trace(PaymentSent, url)
	res, err = f.transport.Post(ctx, url, params, payment)
	if err != nil {
		f.trace(Aborted, url)
		return nil, gate.NewErr(gate.Aborted, "payment not delivered, funds not committed: %v", err)
	}
	switch res.Status {
	case http.StatusOK:
		if len(submitted.Transactions) > 0 {
			if err := f.wallet.Commit(funding.Tx); err != nil {
				return nil, err
			}
			res.Paid = challenge.Amount
			res.TxID = doge.TxHashHex(submitted.Transactions[0])
			f.log.Info("paid", map[string]any{"url": url, "amount": int64(challenge.Amount), "txid": res.TxID, "fee": int64(funding.Tx.FeeAmount)})
		}
		f.trace(Done, url)
		return res, nil
	case http.StatusPaymentRequired:
		f.trace(Aborted, url)
		return nil, gate.NewErr(gate.UnexpectedChallenge, "server asked for payment again after paying %s to %s", challenge.Amount, challenge.Address)
	default:
		f.trace(Aborted, url)
		return nil, gate.NewErr(gate.Aborted, "server answered %d to the payment: %s", res.Status, res.Body)
	}
}

// answer builds the payment for a challenge. A zero-priced challenge is
// answered with the echoed merchant data alone. Must hold LockSpend.
func (f *Flow) answer(c gate.PaymentChallenge) (gate.SubmittedPayment, gate.FundingResult, error) {
	submitted := gate.SubmittedPayment{Memo: f.memo, MerchantData: c.MerchantData}
	if c.Amount == 0 {
		return submitted, gate.FundingResult{}, nil
	}
	funding, err := f.wallet.BuildPayment(c.Amount, c.Address)
	if err != nil {
		return submitted, funding, err
	}
	if !funding.Funded {
		return submitted, funding, gate.NewErr(gate.InsufficientFunds, "cannot pay %s: short by %s", c.Amount, funding.Shortfall)
	}
	raw, err := doge.HexDecode(funding.Tx.TxnHex)
	if err != nil {
		return submitted, funding, gate.NewErr(gate.InvalidTxn, "built transaction: %v", err)
	}
	refund, err := f.wallet.ReceiveAddress()
	if err != nil {
		return submitted, funding, err
	}
	submitted.Transactions = [][]byte{raw}
	submitted.RefundTo = refund
	return submitted, funding, nil
}

func (f *Flow) trace(s State, url string) {
	f.log.Debug("client flow", map[string]any{"state": s.String(), "url": url})
}
