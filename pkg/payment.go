package gate

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

const PaymentContentType = "application/dogecoin-payment"

var validate = validator.New()

// SubmittedPayment is the client's answer to a PaymentChallenge. A
// zero-priced challenge is answered with no transactions at all.
type SubmittedPayment struct {
	Transactions [][]byte `json:"transactions" validate:"max=16,dive,min=1"`
	RefundTo     Address  `json:"refund_to,omitempty" validate:"max=64"`
	Memo         string   `json:"memo,omitempty" validate:"max=256"`
	MerchantData []byte   `json:"merchant_data,omitempty" validate:"max=1024"`
}

func EncodeSubmittedPayment(p SubmittedPayment) ([]byte, error) {
	return json.Marshal(p)
}

func DecodeSubmittedPayment(b []byte) (SubmittedPayment, error) {
	var p SubmittedPayment
	if err := json.Unmarshal(b, &p); err != nil {
		return SubmittedPayment{}, NewErr(MalformedRequest, "payment: %v", err)
	}
	if err := validate.Struct(p); err != nil {
		return SubmittedPayment{}, NewErr(MalformedRequest, "payment: %v", err)
	}
	return p, nil
}
