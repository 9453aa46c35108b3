package mqtt

import "context"

// Client publishes cycle context and receives lighting commands
type Client interface {
	// Connect blocks until the broker accepts the connection or ctx ends
	Connect(ctx context.Context) error

	// Disconnect announces the agent offline and closes the connection
	Disconnect()

	// Subscribe registers handler for topic. Subscriptions survive reconnects.
	Subscribe(topic string, qos byte, handler MessageHandler) error

	// Publish sends payload and waits for the broker to accept it
	Publish(topic string, qos byte, retained bool, payload []byte) error

	IsConnected() bool
}

// MessageHandler is called for every message on a subscribed topic
type MessageHandler func(Message)

// Message is an inbound MQTT message
type Message interface {
	Topic() string
	Payload() []byte
	Ack()
}
