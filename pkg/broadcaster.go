package gate

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/dogecoinfoundation/paygate/pkg/metrics"
)

// TxBroadcaster relays accepted payment transactions without making the
// caller wait on the network.
type TxBroadcaster interface {
	Broadcast(txs [][]byte)
}

// PaymentBroadcaster queues transactions to a small pool of workers that
// relay them through a Sender. Implements conductor.Service.
type PaymentBroadcaster struct {
	sender  Sender
	workers int
	queue   chan []byte
	quit    chan struct{} // closed when the shutdown deadline passes
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	deps
}

var _ TxBroadcaster = &PaymentBroadcaster{}

func NewPaymentBroadcaster(sender Sender, conf GatewayConfig, opts ...Option) *PaymentBroadcaster {
	workers := conf.BroadcastWorkers
	if workers < 1 {
		workers = 1
	}
	size := conf.BroadcastQueue
	if size < 1 {
		size = 1
	}
	return &PaymentBroadcaster{
		sender:  sender,
		workers: workers,
		queue:   make(chan []byte, size),
		quit:    make(chan struct{}),
		deps:    newDeps(conf.Network, opts),
	}
}

// Broadcast never blocks: when the queue is full, or the broadcaster is
// stopping, the transaction is reported as a failed broadcast.
func (b *PaymentBroadcaster) Broadcast(txs [][]byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, tx := range txs {
		if b.closed {
			b.failed(tx, NewErr(BroadcastFailed, "broadcaster is stopped"))
			continue
		}
		select {
		case b.queue <- tx:
		default:
			b.failed(tx, NewErr(BroadcastFailed, "broadcast queue is full"))
		}
	}
}

func (b *PaymentBroadcaster) Run(started, stopped chan bool, stop chan context.Context) error {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.work()
	}
	go func() {
		started <- true
		ctx := <-stop
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()

		done := make(chan struct{})
		go func() {
			b.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			close(b.quit)
			b.log.Warn("broadcaster shutdown deadline reached, abandoning queue", nil)
		}
		stopped <- true
	}()
	return nil
}

func (b *PaymentBroadcaster) work() {
	defer b.wg.Done()
	for tx := range b.queue {
		select {
		case <-b.quit:
			b.failed(tx, NewErr(BroadcastFailed, "abandoned at shutdown"))
			continue
		default:
		}
		b.send(tx)
	}
}

func (b *PaymentBroadcaster) send(tx []byte) {
	txid, err := b.sender.Send(hex.EncodeToString(tx))
	if err != nil {
		b.failed(tx, err)
		return
	}
	b.log.Info("broadcast transaction", map[string]any{"txid": txid})
	b.metrics.IncCounter(metrics.Broadcasts, b.labels)
	b.emit(TX_BROADCAST, BroadcastEvent{TxID: txid})
}

func (b *PaymentBroadcaster) failed(tx []byte, err error) {
	b.log.Error("broadcast failed", map[string]any{"error": err.Error(), "size": len(tx)})
	b.metrics.IncCounter(metrics.BroadcastsFailed, b.labels)
	b.emit(TX_BROADCAST_FAILED, BroadcastEvent{Error: err.Error()})
}
