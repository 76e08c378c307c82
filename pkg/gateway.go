package gate

import (
	"context"

	"github.com/dogecoinfoundation/paygate/pkg/metrics"
)

// State is where a single exchange is in the gateway.
type State int

const (
	AwaitingRequest State = iota
	NoPayment
	PaymentPresent
	ChallengeIssued
	Fulfilled
	Rejected
)

func (s State) String() string {
	switch s {
	case AwaitingRequest:
		return "awaiting-request"
	case NoPayment:
		return "no-payment"
	case PaymentPresent:
		return "payment-present"
	case ChallengeIssued:
		return "challenge-issued"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// GatewayRequest is one inbound API call. Payment is the raw
// SubmittedPayment JSON, nil when the client has not paid yet.
type GatewayRequest struct {
	Params  string
	Payment []byte
	URL     string
}

// Outcome is what the HTTP layer should answer with.
type Outcome interface {
	State() State
}

// ChallengeOutcome asks for payment (402).
type ChallengeOutcome struct {
	Challenge PaymentChallenge
	Body      []byte // encoded PaymentRequest
	Verdict   *SufficiencyVerdict
}

// FulfilledOutcome carries the paid-for resource (200).
type FulfilledOutcome struct {
	Body    []byte
	AckMemo string
}

// RejectedOutcome ends the exchange with Code.
type RejectedOutcome struct {
	Code    ErrorCode
	Message string
}

func (ChallengeOutcome) State() State { return ChallengeIssued }
func (FulfilledOutcome) State() State { return Fulfilled }
func (RejectedOutcome) State() State  { return Rejected }

// ServerGateway decides, per request, whether to challenge, serve or
// reject. It keeps no state between requests.
type ServerGateway struct {
	price       PriceQuote
	issuer      *PaymentRequestIssuer
	validator   *PaymentValidator
	broadcaster TxBroadcaster
	resource    ResourceProvider
	ackMemo     string
	deps
}

func NewServerGateway(price PriceQuote, issuer *PaymentRequestIssuer, validator *PaymentValidator, broadcaster TxBroadcaster, resource ResourceProvider, conf GatewayConfig, opts ...Option) *ServerGateway {
	return &ServerGateway{
		price:       price,
		issuer:      issuer,
		validator:   validator,
		broadcaster: broadcaster,
		resource:    resource,
		ackMemo:     conf.AckMemo,
		deps:        newDeps(conf.Network, opts),
	}
}

func (g *ServerGateway) Price() PriceQuote {
	return g.price
}

// Handle runs one exchange to completion. Returned errors are collaborator
// failures (address exhaustion, wallet or store errors); everything the
// client can act on is an Outcome.
func (g *ServerGateway) Handle(ctx context.Context, req GatewayRequest) (Outcome, error) {
	start := g.now()
	defer func() {
		g.metrics.ObserveLatency(metrics.HandleLatency, g.now().Sub(start), g.labels)
	}()

	if pv, ok := g.resource.(ParamValidator); ok {
		if err := pv.ValidateParams(req.Params); err != nil {
			return RejectedOutcome{Code: MalformedRequest, Message: err.Error()}, nil
		}
	}

	state := NoPayment
	if req.Payment != nil {
		state = PaymentPresent
	}
	g.log.Debug("handling request", map[string]any{"state": state.String(), "params": req.Params})

	if state == NoPayment {
		return g.challenge(req.URL, nil)
	}

	payment, err := DecodeSubmittedPayment(req.Payment)
	if err != nil {
		return RejectedOutcome{Code: MalformedRequest, Message: err.Error()}, nil
	}
	verdict, err := g.validator.Validate(payment, g.price)
	if err != nil {
		if IsError(err, InvalidTxn) || IsError(err, MalformedRequest) {
			return RejectedOutcome{Code: MalformedRequest, Message: err.Error()}, nil
		}
		return nil, err
	}
	if !verdict.Sufficient {
		if verdict.Expired {
			g.metrics.IncCounter(metrics.PaymentsExpired, g.labels)
			g.emit(PAY_EXPIRED, g.paymentEvent(verdict))
		} else {
			g.metrics.IncCounter(metrics.PaymentsInsufficient, g.labels)
			g.emit(PAY_INSUFFICIENT, g.paymentEvent(verdict))
		}
		return g.challenge(req.URL, &verdict)
	}

	g.metrics.IncCounter(metrics.PaymentsAccepted, g.labels)
	g.emit(PAY_ACCEPTED, g.paymentEvent(verdict), verdict.ChallengeID)

	// Relay before the lookup: the payment stands even if the resource is missing.
	if len(payment.Transactions) > 0 {
		g.broadcaster.Broadcast(payment.Transactions)
	}

	body, err := g.resource.Fetch(ctx, req.Params)
	if err != nil {
		if IsNotFoundError(err) {
			g.metrics.IncCounter(metrics.UpstreamNotFound, g.labels)
			return RejectedOutcome{Code: NotFound, Message: err.Error()}, nil
		}
		return nil, err
	}
	return FulfilledOutcome{Body: body, AckMemo: g.ackMemo}, nil
}

func (g *ServerGateway) challenge(url string, verdict *SufficiencyVerdict) (Outcome, error) {
	c, err := g.issuer.Issue(g.price, url)
	if err != nil {
		return nil, err
	}
	body, err := EncodePaymentRequest(c)
	if err != nil {
		return nil, err
	}
	return ChallengeOutcome{Challenge: c, Body: body, Verdict: verdict}, nil
}

func (g *ServerGateway) paymentEvent(v SufficiencyVerdict) PaymentEvent {
	return PaymentEvent{
		ChallengeID: v.ChallengeID,
		PaidToSelf:  v.PaidToSelf,
		Price:       g.price.Amount(),
		Reason:      v.Reason,
	}
}

