package gate

// PriceQuote is what one gated API call costs, fixed at startup.
type PriceQuote struct {
	amount Koinu
}

func NewPriceQuote(amount Koinu) (PriceQuote, error) {
	if amount < 0 {
		return PriceQuote{}, NewErr(BadRequest, "price cannot be negative: %d", amount)
	}
	return PriceQuote{amount: amount}, nil
}

func (p PriceQuote) Amount() Koinu {
	return p.amount
}

// SatisfiedBy reports whether paid covers the price (paid == price accepts).
func (p PriceQuote) SatisfiedBy(paid Koinu) bool {
	return paid >= p.amount
}
