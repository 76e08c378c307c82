package gate

// PayGate event types

// bus.Send(PAY_ACCEPTED, event)
// bus.Send(TX_BROADCAST_FAILED, event)

// Interface for any event
type EventType interface {
	Type() string
}

// slice of all msg types for config funcs lookup
var EVENT_TYPES []EventType = []EventType{EVENT_ALL("ALL"),
	EVENT_SYS("SYS"),
	EVENT_PAY("PAY"),
	EVENT_TX("TX")}

// Special category, do not use directly, represents *
type EVENT_ALL string

func (e EVENT_ALL) Type() string {
	return "ALL"
}

// System Events
type EVENT_SYS string

func (e EVENT_SYS) Type() string {
	return "SYS"
}

const (
	SYS_STARTUP EVENT_SYS = "STARTUP"
	SYS_ERR     EVENT_SYS = "ERR"
	SYS_MSG     EVENT_SYS = "MSG"
)

// Payment gating events
type EVENT_PAY string

func (e EVENT_PAY) Type() string {
	return "PAY"
}

const (
	PAY_CHALLENGE_ISSUED EVENT_PAY = "CHALLENGE_ISSUED"
	PAY_ACCEPTED         EVENT_PAY = "ACCEPTED"
	PAY_INSUFFICIENT     EVENT_PAY = "INSUFFICIENT"
	PAY_EXPIRED          EVENT_PAY = "EXPIRED"
)

// Transaction broadcast events
type EVENT_TX string

func (e EVENT_TX) Type() string {
	return "TX"
}

const (
	TX_BROADCAST        EVENT_TX = "BROADCAST"
	TX_BROADCAST_FAILED EVENT_TX = "BROADCAST_FAILED"
	TX_RECEIVED         EVENT_TX = "RECEIVED"
)

// Event payloads.

type ChallengeEvent struct {
	ChallengeID string  `json:"challenge_id"`
	Address     Address `json:"address"`
	Amount      Koinu   `json:"amount"`
	Expires     int64   `json:"expires"`
}

type PaymentEvent struct {
	ChallengeID string `json:"challenge_id,omitempty"`
	PaidToSelf  Koinu  `json:"paid_to_self"`
	Price       Koinu  `json:"price"`
	Reason      string `json:"reason,omitempty"`
}

type BroadcastEvent struct {
	TxID  string `json:"txid,omitempty"`
	Error string `json:"error,omitempty"`
}

// EventSink is the part of the MessageBus the payment components use.
type EventSink interface {
	Send(t EventType, msg any, msgID ...string) error
}

// NoopSink discards events.
type NoopSink struct{}

func (NoopSink) Send(EventType, any, ...string) error { return nil }
