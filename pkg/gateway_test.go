package gate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type gatewayRig struct {
	*validatorRig
	broadcaster *fakeBroadcaster
	resource    *fakeResource
	sink        *recordingSink
	gateway     *ServerGateway
}

func newGatewayRig(t *testing.T) *gatewayRig {
	r := &gatewayRig{
		validatorRig: newValidatorRig(t),
		broadcaster:  &fakeBroadcaster{},
		resource:     &fakeResource{body: []byte(`{"temperature":21.5}`)},
		sink:         &recordingSink{},
	}
	r.gateway = NewServerGateway(r.price, r.issuer, r.validator, r.broadcaster, r.resource, TestConfig().Gateway,
		WithClock(r.clock.Now), WithEvents(r.sink))
	return r
}

func (r *gatewayRig) paymentJSON(t *testing.T, values ...Koinu) []byte {
	b, err := json.Marshal(r.pay(t, values...))
	require.NoError(t, err)
	return b
}

func TestGatewayNoPaymentChallenges(t *testing.T) {
	r := newGatewayRig(t)
	out, err := r.gateway.Handle(context.Background(), GatewayRequest{Params: "37.8,-122.4", URL: "http://x/api"})
	require.NoError(t, err)
	require.Equal(t, ChallengeIssued, out.State())

	c := out.(ChallengeOutcome)
	require.Equal(t, Koinu(10000), c.Challenge.Amount)
	require.Nil(t, c.Verdict)
	decoded, err := DecodePaymentRequest(c.Body)
	require.NoError(t, err)
	require.Equal(t, c.Challenge.Address, decoded.Address)
	require.Zero(t, r.resource.fetched)
}

func TestGatewaySufficientPaymentFulfils(t *testing.T) {
	r := newGatewayRig(t)
	out, err := r.gateway.Handle(context.Background(), GatewayRequest{Params: "1,2", Payment: r.paymentJSON(t, 10000)})
	require.NoError(t, err)
	require.Equal(t, Fulfilled, out.State())
	f := out.(FulfilledOutcome)
	require.Equal(t, `{"temperature":21.5}`, string(f.Body))
	require.Equal(t, "thanks", f.AckMemo)
	require.Len(t, r.broadcaster.txs, 1)
	require.True(t, r.sink.has(PAY_ACCEPTED))
}

func TestGatewayUnderpaymentRechallenges(t *testing.T) {
	r := newGatewayRig(t)
	payment := r.paymentJSON(t, 9999)
	first := r.wallet.issued[len(r.wallet.issued)-1]

	out, err := r.gateway.Handle(context.Background(), GatewayRequest{Params: "1,2", Payment: payment})
	require.NoError(t, err)
	require.Equal(t, ChallengeIssued, out.State())
	c := out.(ChallengeOutcome)
	require.NotEqual(t, first, c.Challenge.Address, "a new challenge needs a fresh address")
	require.NotNil(t, c.Verdict)
	require.Equal(t, ReasonUnderpaid, c.Verdict.Reason)
	require.Empty(t, r.broadcaster.txs)
	require.Zero(t, r.resource.fetched)
	require.True(t, r.sink.has(PAY_INSUFFICIENT))
}

func TestGatewayExpiredRechallenges(t *testing.T) {
	r := newGatewayRig(t)
	payment := r.paymentJSON(t, 10000)
	r.clock.Advance(11 * time.Minute)

	out, err := r.gateway.Handle(context.Background(), GatewayRequest{Params: "1,2", Payment: payment})
	require.NoError(t, err)
	require.Equal(t, ChallengeIssued, out.State())
	require.True(t, out.(ChallengeOutcome).Verdict.Expired)
	require.Empty(t, r.broadcaster.txs)
	require.True(t, r.sink.has(PAY_EXPIRED))
}

func TestGatewayNotFoundStillBroadcasts(t *testing.T) {
	r := newGatewayRig(t)
	r.resource.err = NewErr(UpstreamUnavailable, "no forecast")
	out, err := r.gateway.Handle(context.Background(), GatewayRequest{Params: "1,2", Payment: r.paymentJSON(t, 10000)})
	require.NoError(t, err)
	require.Equal(t, Rejected, out.State())
	require.Equal(t, NotFound, out.(RejectedOutcome).Code)
	require.Len(t, r.broadcaster.txs, 1)
}

func TestGatewayReusedTxRechallenges(t *testing.T) {
	r := newGatewayRig(t)
	old := r.pay(t, 10000)
	r.clock.Advance(time.Hour)
	fresh := r.issue(t)
	b, err := json.Marshal(SubmittedPayment{Transactions: old.Transactions, MerchantData: fresh.MerchantData})
	require.NoError(t, err)

	out, err := r.gateway.Handle(context.Background(), GatewayRequest{Params: "1,2", Payment: b})
	require.NoError(t, err)
	require.Equal(t, ChallengeIssued, out.State())
	require.Equal(t, ReasonUnderpaid, out.(ChallengeOutcome).Verdict.Reason)
	require.Empty(t, r.broadcaster.txs)
	require.Zero(t, r.resource.fetched)
}

func TestGatewayZeroPriceFulfilsWithoutTransactions(t *testing.T) {
	r := newGatewayRig(t)
	free, err := NewPriceQuote(0)
	require.NoError(t, err)
	r.price = free
	g := NewServerGateway(free, r.issuer, r.validator, r.broadcaster, r.resource, TestConfig().Gateway, WithClock(r.clock.Now))

	out, err := g.Handle(context.Background(), GatewayRequest{Params: "1,2"})
	require.NoError(t, err)
	c := out.(ChallengeOutcome).Challenge
	require.Zero(t, c.Amount)

	b, err := json.Marshal(SubmittedPayment{MerchantData: c.MerchantData})
	require.NoError(t, err)
	out, err = g.Handle(context.Background(), GatewayRequest{Params: "1,2", Payment: b})
	require.NoError(t, err)
	require.Equal(t, Fulfilled, out.State())
	require.Empty(t, r.broadcaster.txs, "nothing to relay for a free call")
}

func TestGatewayMalformedPayment(t *testing.T) {
	r := newGatewayRig(t)
	for _, body := range []string{"not json", `{"transactions":[""]}`, `{"transactions":"abc"}`} {
		out, err := r.gateway.Handle(context.Background(), GatewayRequest{Params: "1,2", Payment: []byte(body)})
		require.NoError(t, err)
		require.Equal(t, Rejected, out.State(), body)
		require.Equal(t, MalformedRequest, out.(RejectedOutcome).Code, body)
	}
	require.Empty(t, r.broadcaster.txs)
}

func TestGatewayUndecodableTxRejected(t *testing.T) {
	r := newGatewayRig(t)
	p := r.pay(t, 10000)
	p.Transactions[0] = []byte("garbage")
	b, _ := json.Marshal(p)
	out, err := r.gateway.Handle(context.Background(), GatewayRequest{Params: "1,2", Payment: b})
	require.NoError(t, err)
	require.Equal(t, MalformedRequest, out.(RejectedOutcome).Code)
}

func TestGatewayParamValidation(t *testing.T) {
	r := newGatewayRig(t)
	vr := &validatingResource{}
	g := NewServerGateway(r.price, r.issuer, r.validator, r.broadcaster, vr, TestConfig().Gateway)
	out, err := g.Handle(context.Background(), GatewayRequest{Params: ""})
	require.NoError(t, err)
	require.Equal(t, Rejected, out.State())
	require.Empty(t, r.wallet.issued, "no address should be spent on a malformed request")
}

func TestGatewayAddressExhaustedIsError(t *testing.T) {
	r := newGatewayRig(t)
	r.wallet.exhausted = true
	_, err := r.gateway.Handle(context.Background(), GatewayRequest{Params: "1,2"})
	require.True(t, IsError(err, AddressExhausted), "got %v", err)
}
