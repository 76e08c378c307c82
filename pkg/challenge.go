package gate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentRequestType        = "paygate:0.1:payment_request"
	PaymentRequestContentType = "application/dogecoin-paymentrequest"
	PaymentAckHeader          = "X-Payment-Ack"
)

// PaymentChallenge is the priced payment request sent with a 402.
type PaymentChallenge struct {
	Network      string          `json:"network"`
	Address      Address         `json:"address"`
	Amount       Koinu           `json:"amount"`
	AmountDoge   decimal.Decimal `json:"amount_doge"`
	Memo         string          `json:"memo"`
	PaymentURL   string          `json:"payment_url"`
	Created      time.Time       `json:"created"`
	Expires      time.Time       `json:"expires"`
	MerchantData []byte          `json:"merchant_data"`
}

func (c PaymentChallenge) Expired(now time.Time) bool {
	return now.After(c.Expires)
}

// PaymentRequest wraps a serialized PaymentChallenge. Payload is the JSON
// challenge (base64 on the wire) and Hash its hex SHA-256.
type PaymentRequest struct {
	Type    string `json:"type"`
	Payload []byte `json:"payload"`
	Hash    string `json:"hash"`
}

func EncodePaymentRequest(c PaymentChallenge) ([]byte, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(payload)
	return json.Marshal(PaymentRequest{
		Type:    PaymentRequestType,
		Payload: payload,
		Hash:    hex.EncodeToString(sum[:]),
	})
}

func DecodePaymentRequest(body []byte) (PaymentChallenge, error) {
	var req PaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return PaymentChallenge{}, NewErr(MalformedRequest, "payment request: %v", err)
	}
	if req.Type != PaymentRequestType {
		return PaymentChallenge{}, NewErr(MalformedRequest, "payment request: unknown type %q", req.Type)
	}
	sum := sha256.Sum256(req.Payload)
	if hex.EncodeToString(sum[:]) != req.Hash {
		return PaymentChallenge{}, NewErr(MalformedRequest, "payment request: payload hash mismatch")
	}
	var c PaymentChallenge
	if err := json.Unmarshal(req.Payload, &c); err != nil {
		return PaymentChallenge{}, NewErr(MalformedRequest, "payment request payload: %v", err)
	}
	if c.Address == "" || c.Amount < 0 {
		return PaymentChallenge{}, NewErr(MalformedRequest, "payment request: missing address or negative amount")
	}
	return c, nil
}
