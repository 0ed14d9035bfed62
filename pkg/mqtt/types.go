package mqtt

import "context"

// MessageHandler is invoked for every message received on a subscribed topic.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is a minimal MQTT v5 client used for publishing refresh events and,
// where needed, subscribing to control topics.
type Client interface {
	// Start establishes the connection manager. Non-blocking; reconnects are
	// handled internally.
	Start(ctx context.Context) error

	// AwaitConnection blocks until the first connection is up or ctx ends.
	AwaitConnection(ctx context.Context) error

	// Publish sends a message to the given topic.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers a handler for a topic filter. The subscription is
	// re-established automatically after reconnects.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error

	// Disconnect closes the connection.
	Disconnect(ctx context.Context)
}
