package transport

import (
	"context"
)

// Transport is an interface for communicating with the message broker.
//
// Implementations must publish with at-least-once semantics, equivalent to
// MQTT QoS 1.
type Transport interface {
	// Connect establishes a connection to the broker.
	//
	// It returns a *TransientError if the broker can not be reached.
	Connect(ctx context.Context) error

	// IsConnected returns true if there is a live connection to the broker.
	IsConnected() bool

	// Publish sends a payload to the broker.
	//
	// A nil error indicates that the transport has accepted the payload for
	// delivery. The returned Ack is used to wait for the broker to acknowledge
	// it.
	Publish(ctx context.Context, topic string, payload []byte) (Ack, error)

	// Subscribe registers fn to be called with the payload of each message
	// received on the given topic.
	//
	// fn is called on a goroutine owned by the transport, and must not block.
	// Subscriptions survive reconnects.
	Subscribe(ctx context.Context, topic string, fn func(payload []byte)) error

	// Close disconnects from the broker.
	Close() error
}

// Ack is a handle to the broker's acknowledgment of a published message.
type Ack interface {
	// Wait blocks until the broker acknowledges the message or ctx is
	// canceled.
	//
	// A nil error means the broker has persisted the message.
	Wait(ctx context.Context) error
}
