package gate

import (
	"testing"
	"time"
)

func newTestIssuer(w ReceiveWallet, clock *fixedClock, sink EventSink) *PaymentRequestIssuer {
	conf := TestConfig().Gateway
	return NewPaymentRequestIssuer(w, NewMerchantSigner(conf.MerchantSecret), conf, WithClock(clock.Now), WithEvents(sink))
}

func TestIssueFreshAddressEachTime(t *testing.T) {
	w := newFakeWallet()
	clock := &fixedClock{t: time.Unix(1700000000, 0)}
	sink := &recordingSink{}
	issuer := newTestIssuer(w, clock, sink)
	price, _ := NewPriceQuote(10000)

	seen := map[Address]bool{}
	for i := 0; i < 5; i++ {
		c, err := issuer.Issue(price, "http://localhost/api")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if seen[c.Address] {
			t.Fatalf("address %s issued twice", c.Address)
		}
		seen[c.Address] = true
		if c.Amount != 10000 {
			t.Errorf("amount %d, want 10000", c.Amount)
		}
		if !c.Expires.Equal(clock.Now().Add(600 * time.Second)) {
			t.Errorf("expires %v, want created + 600s", c.Expires)
		}
		if c.Memo != "API call payment is required" || c.PaymentURL != "http://localhost/api" {
			t.Errorf("unexpected memo/url: %q %q", c.Memo, c.PaymentURL)
		}
	}
	if !sink.has(PAY_CHALLENGE_ISSUED) {
		t.Errorf("expected a CHALLENGE_ISSUED event")
	}
}

func TestIssueMerchantDataMatchesChallenge(t *testing.T) {
	w := newFakeWallet()
	clock := &fixedClock{t: time.Unix(1700000000, 0)}
	issuer := newTestIssuer(w, clock, NoopSink{})
	price, _ := NewPriceQuote(250)
	c, err := issuer.Issue(price, "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	md, err := NewMerchantSigner(TestConfig().Gateway.MerchantSecret).Open(c.MerchantData)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if md.Address != c.Address || md.Amount != 250 || md.Expires != c.Expires.Unix() {
		t.Fatalf("merchant data %+v does not match challenge", md)
	}
}

func TestIssueAddressExhausted(t *testing.T) {
	w := newFakeWallet()
	w.exhausted = true
	issuer := newTestIssuer(w, &fixedClock{t: time.Now()}, NoopSink{})
	price, _ := NewPriceQuote(1)
	if _, err := issuer.Issue(price, ""); !IsError(err, AddressExhausted) {
		t.Fatalf("expected AddressExhausted, got %v", err)
	}
}

func TestEncodeDecodePaymentRequest(t *testing.T) {
	issuer := newTestIssuer(newFakeWallet(), &fixedClock{t: time.Unix(1700000000, 0)}, NoopSink{})
	price, _ := NewPriceQuote(10000)
	c, _ := issuer.Issue(price, "http://x/api")
	body, err := EncodePaymentRequest(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodePaymentRequest(body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Address != c.Address || got.Amount != c.Amount || !got.Expires.Equal(c.Expires) {
		t.Fatalf("decoded %+v, want %+v", got, c)
	}

	// flipping a payload byte must fail the hash check
	bad := []byte(`{"type":"paygate:0.1:payment_request","payload":"e30=","hash":"00"}`)
	if _, err := DecodePaymentRequest(bad); !IsError(err, MalformedRequest) {
		t.Fatalf("expected MalformedRequest for bad hash, got %v", err)
	}
	if _, err := DecodePaymentRequest([]byte("not json")); !IsError(err, MalformedRequest) {
		t.Fatalf("expected MalformedRequest for garbage, got %v", err)
	}
}
