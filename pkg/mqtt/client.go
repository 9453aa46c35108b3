package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Lux-EE464H/Lux/pkg/config"
)

const (
	// publishTimeout bounds how long a publish may wait for the broker
	publishTimeout = 5 * time.Second

	statusOnline  = "online"
	statusOffline = "offline"
)

type subscription struct {
	qos     byte
	handler pahomqtt.MessageHandler
}

// mqttClient implements Client on top of Paho
type mqttClient struct {
	client       pahomqtt.Client
	broker       string
	availability string
	logger       *slog.Logger

	mu            sync.Mutex
	subscriptions map[string]subscription
}

// NewClient creates a client for cfg's broker. The broker publishes
// "offline" on the location's availability topic if the agent drops.
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	m := &mqttClient{
		broker:        cfg.MQTTAddress(),
		availability:  AvailabilityTopic(cfg.Location),
		logger:        logger,
		subscriptions: make(map[string]subscription),
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(m.broker)

	if cfg.MQTTClientID != "" {
		opts.SetClientID(cfg.MQTTClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("%s-%s-%d", cfg.ServiceName, cfg.Location, time.Now().Unix()))
	}
	if cfg.MQTTUser != "" {
		opts.SetUsername(cfg.MQTTUser)
	}
	if cfg.MQTTPassword != "" {
		opts.SetPassword(cfg.MQTTPassword)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetWill(m.availability, statusOffline, 1, true)

	opts.OnConnect = m.onConnect
	opts.OnConnectionLost = func(c pahomqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	}
	opts.OnReconnecting = func(c pahomqtt.Client, opts *pahomqtt.ClientOptions) {
		logger.Info("MQTT reconnecting...")
	}

	m.client = pahomqtt.NewClient(opts)
	return m
}

// onConnect announces availability and restores subscriptions lost with the clean session
func (m *mqttClient) onConnect(c pahomqtt.Client) {
	m.logger.Info("Connected to MQTT broker", "broker", m.broker)

	c.Publish(m.availability, 1, true, statusOnline)

	m.mu.Lock()
	defer m.mu.Unlock()
	for topic, sub := range m.subscriptions {
		token := c.Subscribe(topic, sub.qos, sub.handler)
		if !token.WaitTimeout(publishTimeout) || token.Error() != nil {
			m.logger.Error("Failed to restore subscription", "topic", topic, "error", token.Error())
		}
	}
}

// Connect establishes a connection to the MQTT broker
func (m *mqttClient) Connect(ctx context.Context) error {
	m.logger.Info("Connecting to MQTT broker", "broker", m.broker)

	token := m.client.Connect()

	select {
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connection timeout: %w", ctx.Err())
	}
}

// Disconnect publishes "offline" and closes the connection
func (m *mqttClient) Disconnect() {
	m.logger.Info("Disconnecting from MQTT broker")
	if m.client.IsConnected() {
		m.client.Publish(m.availability, 1, true, statusOffline).WaitTimeout(time.Second)
	}
	m.client.Disconnect(250)
}

// Subscribe subscribes to a topic and remembers it for reconnects
func (m *mqttClient) Subscribe(topic string, qos byte, handler MessageHandler) error {
	m.logger.Info("Subscribing to MQTT topic", "topic", topic, "qos", qos)

	sub := subscription{
		qos: qos,
		handler: func(client pahomqtt.Client, msg pahomqtt.Message) {
			handler(&mqttMessage{msg: msg})
		},
	}

	m.mu.Lock()
	m.subscriptions[topic] = sub
	m.mu.Unlock()

	token := m.client.Subscribe(topic, qos, sub.handler)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out subscribing to topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}
	return nil
}

// Publish publishes a message to a topic
func (m *mqttClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := m.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	m.logger.Debug("Published message", "topic", topic, "size", len(payload))
	return nil
}

func (m *mqttClient) IsConnected() bool {
	return m.client.IsConnected()
}

// mqttMessage adapts a Paho message to Message
type mqttMessage struct {
	msg pahomqtt.Message
}

func (m *mqttMessage) Topic() string   { return m.msg.Topic() }
func (m *mqttMessage) Payload() []byte { return m.msg.Payload() }
func (m *mqttMessage) Ack()            { m.msg.Ack() }
