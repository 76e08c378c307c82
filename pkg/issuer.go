package gate

import (
	"time"

	"github.com/dogecoinfoundation/paygate/pkg/metrics"
	"github.com/google/uuid"
)

// PaymentRequestIssuer builds priced challenges addressed to a freshly
// derived receive address.
type PaymentRequestIssuer struct {
	wallet  ReceiveWallet
	signer  MerchantSigner
	network string
	memo    string
	ttl     time.Duration
	deps
}

func NewPaymentRequestIssuer(wallet ReceiveWallet, signer MerchantSigner, conf GatewayConfig, opts ...Option) *PaymentRequestIssuer {
	return &PaymentRequestIssuer{
		wallet:  wallet,
		signer:  signer,
		network: conf.Network,
		memo:    conf.Memo,
		ttl:     conf.ChallengeTimeout(),
		deps:    newDeps(conf.Network, opts),
	}
}

// Issue derives a new address (advancing the wallet cursor) and returns
// a challenge for price that expires after the configured window.
// AddressExhausted from the wallet is returned as is.
func (i *PaymentRequestIssuer) Issue(price PriceQuote, paymentURL string) (PaymentChallenge, error) {
	addr, err := i.wallet.FreshReceiveAddress()
	if err != nil {
		return PaymentChallenge{}, err
	}
	now := i.now().UTC()
	expires := now.Add(i.ttl)
	md := MerchantData{
		ChallengeID: uuid.NewString(),
		Address:     addr,
		Amount:      price.Amount(),
		Expires:     expires.Unix(),
	}
	sealed, err := i.signer.Seal(md)
	if err != nil {
		return PaymentChallenge{}, err
	}
	i.metrics.IncCounter(metrics.ChallengesIssued, i.labels)
	i.emit(PAY_CHALLENGE_ISSUED, ChallengeEvent{
		ChallengeID: md.ChallengeID,
		Address:     addr,
		Amount:      md.Amount,
		Expires:     md.Expires,
	}, md.ChallengeID)
	return PaymentChallenge{
		Network:      i.network,
		Address:      addr,
		Amount:       price.Amount(),
		AmountDoge:   price.Amount().Doge(),
		Memo:         i.memo,
		PaymentURL:   paymentURL,
		Created:      now,
		Expires:      time.Unix(md.Expires, 0).UTC(),
		MerchantData: sealed,
	}, nil
}
