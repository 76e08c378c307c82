package gate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeTx is what a raw test transaction pays, and to whom.
type fakeTx struct {
	to    Address
	value Koinu
}

// fakeWallet pays out sequential addresses and values transactions by
// looking them up in a table keyed on the raw bytes.
type fakeWallet struct {
	mu        sync.Mutex
	next      int
	issued    []Address
	txs       map[string]fakeTx
	exhausted bool
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{txs: map[string]fakeTx{}}
}

func (w *fakeWallet) FreshReceiveAddress() (Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.exhausted {
		return "", NewErr(AddressExhausted, "no more addresses")
	}
	w.next++
	addr := Address(fmt.Sprintf("addr-%d", w.next))
	w.issued = append(w.issued, addr)
	return addr, nil
}

func (w *fakeWallet) ValueToAddress(tx []byte, to Address) (Koinu, error) {
	p, ok := w.txs[string(tx)]
	if !ok {
		return 0, NewErr(InvalidTxn, "cannot decode transaction")
	}
	if p.to != to {
		return 0, nil
	}
	return p.value, nil
}

type fakeBroadcaster struct {
	mu  sync.Mutex
	txs [][]byte
}

func (b *fakeBroadcaster) Broadcast(txs [][]byte) {
	b.mu.Lock()
	b.txs = append(b.txs, txs...)
	b.mu.Unlock()
}

type fakeResource struct {
	body    []byte
	err     error
	fetched int
}

func (r *fakeResource) Fetch(ctx context.Context, params string) ([]byte, error) {
	r.fetched++
	return r.body, r.err
}

type validatingResource struct {
	fakeResource
}

func (r *validatingResource) ValidateParams(params string) error {
	if params == "" {
		return NewErr(MalformedRequest, "missing params")
	}
	return nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *fakeSender) Send(txnHex string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, txnHex)
	return fmt.Sprintf("txid-%d", len(s.sent)), nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// recordingSink keeps every event sent to it.
type recordingSink struct {
	mu     sync.Mutex
	events []EventType
}

func (r *recordingSink) Send(t EventType, msg any, msgID ...string) error {
	r.mu.Lock()
	r.events = append(r.events, t)
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) has(t EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == t {
			return true
		}
	}
	return false
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
