package receivers

import (
	"context"
	"encoding/json"
	"fmt"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/conductor"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
	"github.com/yosssi/gmq/mqtt"
	"github.com/yosssi/gmq/mqtt/client"
)

func NewMQTTSender(config gate.MQTTConfig, bus gate.EventSink, log logger.Logger) MQTTSender {
	return MQTTSender{
		make(chan gate.Message, 1000),
		config,
		bus,
		log,
	}
}

type MQTTSender struct {
	// incomming msgs
	Rec    chan gate.Message
	Config gate.MQTTConfig
	Bus    gate.EventSink
	log    logger.Logger
}

// Implements gate.MessageSubscriber
func (s MQTTSender) GetChan() chan gate.Message {
	return s.Rec
}

// Implements conductor.Service; fails to start if the broker is unreachable.
func (s MQTTSender) Run(started, stopped chan bool, stop chan context.Context) error {
	cli := client.New(&client.Options{
		ErrorHandler: func(err error) {
			s.log.Error("MQTTSender", map[string]any{"err": err.Error()})
		},
	})

	// connect to MQTT Bus
	err := cli.Connect(&client.ConnectOptions{
		Network:  "tcp",
		Address:  s.Config.Address,
		ClientID: []byte(s.Config.ClientID),
		UserName: []byte(s.Config.Username),
		Password: []byte(s.Config.Password),
	})
	if err != nil {
		cli.Terminate()
		return gate.NewErr(gate.NotAvailable, "MQTTSender connection failure: %v", err)
	}

	go func() {
		started <- true
		for {
			select {
			// handle stopping the service
			case <-stop:
				cli.Disconnect()
				cli.Terminate()
				stopped <- true
				return
			case msg := <-s.Rec:
				jsonMsg, err := json.Marshal(msg)
				if err != nil {
					s.log.Error("MQTTSender failed to marshal msg", map[string]any{"id": msg.ID, "err": err.Error()})
					continue
				}
				for _, topic := range topicsFor(s.Config.Queues, msg) {
					err = cli.Publish(&client.PublishOptions{
						QoS:       mqtt.QoS0,
						TopicName: []byte(topic),
						Message:   jsonMsg,
					})
					if err != nil && msg.Type != "SYS" {
						s.Bus.Send(gate.SYS_ERR, fmt.Sprintf("MQTTSender: publish %s to %s: %v", msg.ID, topic, err))
					}
				}
			}
		}
	}()
	return nil
}

// topicsFor returns the topics of queues that accept msg. SYS messages go
// only to queues that name SYS explicitly.
func topicsFor(queues map[string]gate.MQTTQueueConfig, msg gate.Message) []string {
	topics := []string{}
	for _, queue := range queues {
		for _, t := range queue.Types {
			if t == msg.Type || (t == "ALL" && msg.Type != "SYS") {
				topics = append(topics, queue.TopicFilter)
				break
			}
		}
	}
	return topics
}

func SetupMQTTs(cond *conductor.Conductor, bus Bus, conf gate.Config, log logger.Logger) {
	if conf.MQTT.Address != "" {
		s := NewMQTTSender(conf.MQTT, bus, log)
		cond.Service("MQTT sender", s)
		// Sub to 'ALL' because we're filtering on our side
		bus.Register(s, gate.EVENT_ALL("ALL"))
	}
}
