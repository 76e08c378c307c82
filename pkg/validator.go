package gate

const (
	ReasonUnverifiable = "unverifiable-challenge"
	ReasonExpired      = "expired"
	ReasonUnderpaid    = "underpaid"
)

// SufficiencyVerdict is the outcome of validating a SubmittedPayment.
type SufficiencyVerdict struct {
	Sufficient  bool
	PaidToSelf  Koinu
	Expired     bool
	ChallengeID string
	Reason      string
}

// PaymentValidator decides whether a payment covers the price. It holds
// no state between calls.
type PaymentValidator struct {
	wallet ReceiveWallet
	signer MerchantSigner
	deps
}

func NewPaymentValidator(wallet ReceiveWallet, signer MerchantSigner, conf GatewayConfig, opts ...Option) *PaymentValidator {
	return &PaymentValidator{wallet: wallet, signer: signer, deps: newDeps(conf.Network, opts)}
}

// Validate checks the echoed challenge first (signature, then expiry) and
// only then sums what each transaction pays to the challenge's own address.
// Outputs to any other address, including ones issued for earlier
// challenges, count for nothing. Wallet errors (e.g. undecodable
// transactions) are returned, not folded into the verdict.
func (v *PaymentValidator) Validate(p SubmittedPayment, price PriceQuote) (SufficiencyVerdict, error) {
	md, err := v.signer.Open(p.MerchantData)
	if err != nil {
		return SufficiencyVerdict{Reason: ReasonUnverifiable}, nil
	}
	verdict := SufficiencyVerdict{ChallengeID: md.ChallengeID}
	if v.now().After(md.ExpiresAt()) {
		verdict.Expired = true
		verdict.Reason = ReasonExpired
		return verdict, nil
	}
	var sum Koinu
	for _, tx := range p.Transactions {
		value, err := v.wallet.ValueToAddress(tx, md.Address)
		if err != nil {
			return SufficiencyVerdict{}, err
		}
		sum += value
	}
	verdict.PaidToSelf = sum
	verdict.Sufficient = price.SatisfiedBy(sum)
	if !verdict.Sufficient {
		verdict.Reason = ReasonUnderpaid
	}
	return verdict, nil
}
