package receivers

import (
	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/conductor"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
)

// Bus is the part of gate.MessageBus receivers need.
type Bus interface {
	gate.EventSink
	Register(m gate.MessageSubscriber, types ...gate.EventType) *gate.Subscription
}

// Sets up every configured receiver (log files, callbacks, MQTT).
func SetUpReceivers(cond *conductor.Conductor, bus Bus, conf gate.Config, log logger.Logger) {
	SetupLoggers(cond, bus, conf, log)
	SetupCallbacks(cond, bus, conf, log)
	SetupMQTTs(cond, bus, conf, log)
}

// parseTypes maps configured names ("PAY", "TX", "ALL"...) to EventTypes,
// skipping names it does not know.
func parseTypes(receiver string, names []string, log logger.Logger) []gate.EventType {
	types := []gate.EventType{}
	for _, t := range names {
		match := false
		for _, x := range gate.EVENT_TYPES {
			if t == x.Type() {
				match = true
				types = append(types, x)
			}
		}
		if !match {
			log.Warn("ignoring invalid message type", map[string]any{"receiver": receiver, "type": t})
		}
	}
	return types
}
