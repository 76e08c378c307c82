package core

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
	"github.com/pebbe/zmq4"
)

// TxIngester takes raw transactions seen on the network and keeps any
// outputs that pay it.
type TxIngester interface {
	IngestTx(raw []byte) (gate.Koinu, error)
}

// CoreReceiver receives ZMQ rawtx messages from Dogecoin Core and feeds
// them to a wallet, which is how the paying client learns about funds.
// CAUTION: the protocol is not authenticated!
// CAUTION: subscribers MUST validate the received data since it may be out of date, incomplete or even invalid (fake)
type CoreReceiver struct {
	bus         gate.EventSink
	wallet      TxIngester
	log         logger.Logger
	nodeAddress string
}

func NewCoreReceiver(bus gate.EventSink, wallet TxIngester, config gate.Config, log logger.Logger) *CoreReceiver {
	return &CoreReceiver{
		bus:         bus,
		wallet:      wallet,
		log:         log,
		nodeAddress: fmt.Sprintf("tcp://%s:%d", config.Core.ZMQHost, config.Core.ZMQPort),
	}
}

func (z *CoreReceiver) Run(started, stopped chan bool, stop chan context.Context) error {
	sock, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return err
	}
	sock.SetRcvtimeo(2 * time.Second)
	z.log.Info("ZMQ: connecting", map[string]any{"address": z.nodeAddress})
	err = sock.Connect(z.nodeAddress)
	if err != nil {
		sock.Close()
		return err
	}
	err = sock.SetSubscribe("rawtx")
	if err != nil {
		sock.Close()
		return err
	}
	go func() {
		started <- true
		for {
			select {
			case <-stop:
				sock.Close()
				stopped <- true
				return
			default:
				// fall through to zmq recv
			}

			msg, err := sock.RecvMessageBytes(0)
			if err != nil {
				var errno zmq4.Errno
				if errors.As(err, &errno) && (errno == zmq4.Errno(syscall.ETIMEDOUT) || errno == zmq4.Errno(syscall.EAGAIN)) {
					continue // receive timeout: check for shutdown and loop
				}
				z.log.Error("ZMQ: receive error", map[string]any{"error": err.Error()})
				time.Sleep(time.Second)
				continue
			}
			if len(msg) < 2 || string(msg[0]) != "rawtx" {
				continue
			}
			z.ingest(msg[1])
		}
	}()
	return nil
}

func (z *CoreReceiver) ingest(raw []byte) {
	value, err := z.wallet.IngestTx(raw)
	if err != nil {
		z.log.Warn("ZMQ: cannot ingest transaction", map[string]any{"error": err.Error()})
		return
	}
	if value > 0 {
		z.log.Info("ZMQ: received funds", map[string]any{"value": int64(value)})
		z.bus.Send(gate.TX_RECEIVED, map[string]any{"value": value})
	}
}
