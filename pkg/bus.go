package gate

/*
The message subsystem gives integrations event-based access to the
gateway: challenges issued, payments accepted or rejected, broadcasts
that failed.

A MessageBus is created once and passed to the components that emit
events. Receivers (log files, HTTP callbacks, MQTT) register with the
bus for the EventTypes they care about and are fed through their own
channels by the bus goroutine.
*/

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// MessageSubscribers are things that subscribe to the bus and handle
// messages, ie: MQTT, http callbacks, log files.
type MessageSubscriber interface {
	GetChan() chan Message
}

// Created by the bus, wraps message sent with Send
type Message struct {
	EventType EventType       `json:"-"`
	Type      string          `json:"type"`
	Event     string          `json:"event"`
	Message   json.RawMessage `json:"message"`
	ID        string          `json:"id"`
}

type Subscription struct {
	dest  MessageSubscriber
	types []EventType
}

func (s *Subscription) wants(t EventType) bool {
	for _, x := range s.types {
		if x.Type() == "ALL" || x.Type() == t.Type() {
			return true
		}
	}
	return false
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		receivers: make(map[*Subscription]bool),
		inbound:   make(chan Message, 1000),
	}
}

type MessageBus struct {
	mu        sync.Mutex
	receivers map[*Subscription]bool

	// Messages from Send(), destined for MessageSubscribers
	inbound chan Message
}

var _ EventSink = &MessageBus{}

// Send a message to the bus with a specific EventType.
// msg can be anything JSON serialisable. Send never blocks: when the bus
// is backed up the message is dropped and an error returned.
func (b *MessageBus) Send(t EventType, msg any, msgID ...string) error {
	j, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	id := ""
	if len(msgID) > 0 {
		id = msgID[0]
	} else {
		id = uuid.NewString()
	}
	select {
	case b.inbound <- Message{EventType: t, Type: t.Type(), Event: eventName(t), Message: j, ID: id}:
		return nil
	default:
		return NewErr(NotAvailable, "message bus is full, dropped %s", eventName(t))
	}
}

func (b *MessageBus) Register(m MessageSubscriber, types ...EventType) *Subscription {
	sub := &Subscription{m, types}
	b.mu.Lock()
	b.receivers[sub] = true
	b.mu.Unlock()
	return sub
}

func (b *MessageBus) dispatch(message Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.receivers {
		if !sub.wants(message.EventType) {
			continue
		}
		select {
		case sub.dest.GetChan() <- message:
		default:
			// receiver is not keeping up; drop it rather than stall the bus.
			delete(b.receivers, sub)
		}
	}
}

// Implements conductor Service
func (b *MessageBus) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		for {
			select {
			case <-stop:
				stopped <- true
				return
			case message := <-b.inbound:
				b.dispatch(message)
			}
		}
	}()
	return nil
}

func eventName(t EventType) string {
	switch v := t.(type) {
	case EVENT_SYS:
		return string(v)
	case EVENT_PAY:
		return string(v)
	case EVENT_TX:
		return string(v)
	case EVENT_ALL:
		return string(v)
	}
	return t.Type()
}
