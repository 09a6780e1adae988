package transporttest

import (
	"context"
	"errors"
	"sync"

	"github.com/tum-esm/hermes/transport"
)

// ErrUnreachable is the cause of the transient errors returned by transports
// when the broker is offline.
var ErrUnreachable = errors.New("broker is unreachable")

// ErrAckLost is the cause of the transient error returned when the broker
// drops an acknowledgment.
var ErrAckLost = errors.New("acknowledgment lost")

// Publication is a payload received by a Broker.
type Publication struct {
	Topic   string
	Payload []byte
}

// Broker is an in-memory message broker for use in tests.
//
// The zero-value is an offline broker.
type Broker struct {
	m         sync.Mutex
	online    bool
	session   uint64
	dropAcks  int
	published []Publication
	subs      map[string][]func([]byte)
	changed   chan struct{}
}

// SetOnline brings the broker online or takes it offline.
//
// Taking the broker offline drops every connection.
func (b *Broker) SetOnline(online bool) {
	b.m.Lock()
	defer b.m.Unlock()

	if b.online && !online {
		b.session++
	}

	b.online = online
}

// DropAcks causes the broker to accept the next n publishes without ever
// acknowledging them.
func (b *Broker) DropAcks(n int) {
	b.m.Lock()
	defer b.m.Unlock()

	b.dropAcks = n
}

// Published returns the payloads received on the given topic, in the order
// they were received.
func (b *Broker) Published(topic string) []Publication {
	b.m.Lock()
	defer b.m.Unlock()

	var result []Publication
	for _, p := range b.published {
		if p.Topic == topic {
			result = append(result, p)
		}
	}

	return result
}

// Changed returns a channel that is closed the next time a payload is
// published.
func (b *Broker) Changed() <-chan struct{} {
	b.m.Lock()
	defer b.m.Unlock()

	if b.changed == nil {
		b.changed = make(chan struct{})
	}

	return b.changed
}

// Deliver sends a payload to every subscriber of topic.
//
// It returns false if the broker is offline.
func (b *Broker) Deliver(topic string, payload []byte) bool {
	b.m.Lock()
	if !b.online {
		b.m.Unlock()
		return false
	}
	subs := append([]func([]byte){}, b.subs[topic]...)
	b.m.Unlock()

	for _, fn := range subs {
		fn(payload)
	}

	return true
}

// IsSubscribed returns true if any client has subscribed to topic.
func (b *Broker) IsSubscribed(topic string) bool {
	b.m.Lock()
	defer b.m.Unlock()

	return len(b.subs[topic]) > 0
}

// NewTransport returns a new client of the broker.
func (b *Broker) NewTransport() *Transport {
	return &Transport{broker: b}
}

func (b *Broker) connect() (uint64, error) {
	b.m.Lock()
	defer b.m.Unlock()

	if !b.online {
		return 0, ErrUnreachable
	}

	return b.session, nil
}

func (b *Broker) isConnected(session uint64) bool {
	b.m.Lock()
	defer b.m.Unlock()

	return b.online && b.session == session
}

func (b *Broker) publish(session uint64, topic string, payload []byte) (transport.Ack, error) {
	b.m.Lock()
	defer b.m.Unlock()

	if !b.online || b.session != session {
		return nil, ErrUnreachable
	}

	b.published = append(b.published, Publication{
		topic,
		append([]byte(nil), payload...),
	})

	if b.changed != nil {
		close(b.changed)
		b.changed = nil
	}

	if b.dropAcks > 0 {
		b.dropAcks--
		return lostAck{}, nil
	}

	return ack{}, nil
}

func (b *Broker) subscribe(topic string, fn func([]byte)) {
	b.m.Lock()
	defer b.m.Unlock()

	if b.subs == nil {
		b.subs = map[string][]func([]byte){}
	}

	b.subs[topic] = append(b.subs[topic], fn)
}

type ack struct{}

func (ack) Wait(ctx context.Context) error {
	return ctx.Err()
}

type lostAck struct{}

func (lostAck) Wait(ctx context.Context) error {
	<-ctx.Done()
	return transport.Transient("await acknowledgment", ErrAckLost)
}
