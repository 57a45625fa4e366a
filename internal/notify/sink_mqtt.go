package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/waqtapp/waqt/pkg/logger"
)

const mqttTimeout = 10 * time.Second

var ErrMQTTTimeout = errors.New("mqtt: timed out waiting for broker")

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes reminders as JSON for home automation (smart speakers,
// lights). Each reminder goes to <topic>/<trigger id> with QoS 1.
type MQTTSink struct {
	client mqttPublisher
	topic  string
	close  func()
}

// NewMQTTSink connects to broker and returns a sink publishing under topic.
func NewMQTTSink(broker, clientID, topic string, l logger.Logger) (*MQTTSink, error) {
	log := logger.OrNop(l)
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Info("mqtt: connected to %s", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warning("mqtt: connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("connect %s: %w", broker, ErrMQTTTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return &MQTTSink{
		client: client,
		topic:  topic,
		close:  func() { client.Disconnect(250) },
	}, nil
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Deliver(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.topic+"/"+n.ID, 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mqttTimeout):
		return ErrMQTTTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() {
	if s.close != nil {
		s.close()
	}
}
