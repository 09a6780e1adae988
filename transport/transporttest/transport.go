package transporttest

import (
	"context"
	"sync"

	"github.com/tum-esm/hermes/transport"
)

// Transport is an implementation of transport.Transport that is connected to
// an in-memory Broker.
type Transport struct {
	broker *Broker

	m         sync.Mutex
	connected bool
	session   uint64
	connects  int
}

var _ transport.Transport = (*Transport)(nil)

// Connect establishes a connection to the broker.
func (t *Transport) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.m.Lock()
	defer t.m.Unlock()

	t.connects++

	s, err := t.broker.connect()
	if err != nil {
		return transport.Transient("connect to broker", err)
	}

	t.connected = true
	t.session = s

	return nil
}

// Connects returns the number of times Connect() has been called.
func (t *Transport) Connects() int {
	t.m.Lock()
	defer t.m.Unlock()

	return t.connects
}

// IsConnected returns true if there is a live connection to the broker.
func (t *Transport) IsConnected() bool {
	t.m.Lock()
	defer t.m.Unlock()

	return t.connected && t.broker.isConnected(t.session)
}

// Publish sends a payload to the broker.
func (t *Transport) Publish(
	ctx context.Context,
	topic string,
	payload []byte,
) (transport.Ack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.m.Lock()
	connected, session := t.connected, t.session
	t.m.Unlock()

	if !connected {
		return nil, transport.Transient("publish", ErrUnreachable)
	}

	a, err := t.broker.publish(session, topic, payload)
	if err != nil {
		return nil, transport.Transient("publish", err)
	}

	return a, nil
}

// Subscribe registers fn to be called with the payload of each message
// delivered to the given topic.
func (t *Transport) Subscribe(
	_ context.Context,
	topic string,
	fn func(payload []byte),
) error {
	t.broker.subscribe(topic, fn)
	return nil
}

// Close disconnects from the broker.
func (t *Transport) Close() error {
	t.m.Lock()
	defer t.m.Unlock()

	t.connected = false

	return nil
}
