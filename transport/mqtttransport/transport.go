package mqtttransport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/tum-esm/hermes/transport"
)

// qos is the MQTT quality-of-service level used for all publishes and
// subscriptions. Level 1 is "at least once".
const qos = 1

// DefaultConnectTimeout is the default maximum time to wait for a connection
// to the broker to be established.
var DefaultConnectTimeout = 30 * time.Second

// Transport is an implementation of transport.Transport that communicates
// with an MQTT broker.
type Transport struct {
	// Broker is the URL of the MQTT broker, such as "tcp://localhost:1883" or
	// "ssl://broker.example.org:8883".
	Broker string

	// ClientID is the prefix of the client identifier presented to the broker.
	// A random suffix is added so that a restarted process does not collide
	// with its predecessor's lingering session.
	ClientID string

	// Username and Password are the credentials presented to the broker.
	Username string
	Password string

	// ConnectTimeout is the maximum time to wait for a connection to be
	// established. If it is zero, DefaultConnectTimeout is used.
	ConnectTimeout time.Duration

	// Logger is the target for log messages about the connection. If it is
	// nil, logging.DefaultLogger is used.
	Logger logging.Logger

	m      sync.Mutex
	client mqtt.Client
	subs   map[string]func([]byte)
}

var _ transport.Transport = (*Transport)(nil)

// Connect establishes a connection to the broker.
func (t *Transport) Connect(ctx context.Context) error {
	c := t.clientOrInit()

	if c.IsConnectionOpen() {
		return nil
	}

	timeout := t.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := wait(ctx, c.Connect()); err != nil {
		return transport.Transient("connect to broker", err)
	}

	logging.Log(t.Logger, "connected to %s", t.Broker)

	return nil
}

// IsConnected returns true if there is a live connection to the broker.
func (t *Transport) IsConnected() bool {
	t.m.Lock()
	c := t.client
	t.m.Unlock()

	return c != nil && c.IsConnectionOpen()
}

// Publish sends a payload to the broker with QoS 1.
func (t *Transport) Publish(
	ctx context.Context,
	topic string,
	payload []byte,
) (transport.Ack, error) {
	c := t.clientOrInit()

	if !c.IsConnectionOpen() {
		return nil, transport.Transient("publish", mqtt.ErrNotConnected)
	}

	tok := c.Publish(topic, qos, false, payload)

	// The token is completed immediately if the client refuses the publish.
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return nil, transport.Transient("publish", err)
		}
	default:
	}

	return ack{tok}, nil
}

// Subscribe registers fn to be called with the payload of each message
// received on the given topic.
func (t *Transport) Subscribe(
	ctx context.Context,
	topic string,
	fn func(payload []byte),
) error {
	c := t.clientOrInit()

	t.m.Lock()
	t.subs[topic] = fn
	t.m.Unlock()

	if !c.IsConnectionOpen() {
		// The subscription is made when the connection is established.
		return nil
	}

	return transport.Transient(
		"subscribe",
		wait(ctx, c.Subscribe(topic, qos, handler(fn))),
	)
}

// Close disconnects from the broker.
func (t *Transport) Close() error {
	t.m.Lock()
	defer t.m.Unlock()

	if t.client == nil {
		return nil
	}

	if t.client.IsConnected() {
		t.client.Disconnect(250)
	}

	t.client = nil

	return nil
}

// clientOrInit returns the MQTT client, creating it if necessary.
func (t *Transport) clientOrInit() mqtt.Client {
	t.m.Lock()
	defer t.m.Unlock()

	if t.client != nil {
		return t.client
	}

	if t.subs == nil {
		t.subs = map[string]func([]byte){}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(t.Broker).
		SetClientID(fmt.Sprintf("%s-%s", t.ClientID, uuid.NewString()[:8])).
		SetUsername(t.Username).
		SetPassword(t.Password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOrderMatters(false).
		SetOnConnectHandler(t.onConnect).
		SetConnectionLostHandler(t.onConnectionLost)

	t.client = mqtt.NewClient(opts)

	return t.client
}

// onConnect (re-)establishes the subscriptions each time the client
// connects.
func (t *Transport) onConnect(c mqtt.Client) {
	t.m.Lock()
	subs := make(map[string]byte, len(t.subs))
	handlers := make(map[string]func([]byte), len(t.subs))
	for topic, fn := range t.subs {
		subs[topic] = qos
		handlers[topic] = fn
	}
	t.m.Unlock()

	if len(subs) == 0 {
		return
	}

	tok := c.SubscribeMultiple(
		subs,
		func(_ mqtt.Client, m mqtt.Message) {
			if fn, ok := handlers[m.Topic()]; ok {
				fn(m.Payload())
			}
		},
	)

	go func() {
		tok.Wait()
		if err := tok.Error(); err != nil {
			logging.Log(t.Logger, "unable to subscribe: %s", err)
		}
	}()
}

func (t *Transport) onConnectionLost(_ mqtt.Client, err error) {
	logging.Log(t.Logger, "connection to %s lost: %s", t.Broker, err)
}

// handler adapts fn to an MQTT message handler.
func handler(fn func([]byte)) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		fn(m.Payload())
	}
}

// ack is an implementation of transport.Ack that waits for an MQTT token.
type ack struct {
	tok mqtt.Token
}

// Wait blocks until the broker sends PUBACK or ctx is canceled.
func (a ack) Wait(ctx context.Context) error {
	return transport.Transient("await acknowledgment", wait(ctx, a.tok))
}

// wait blocks until tok completes or ctx is canceled.
func wait(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tok.Done():
	}

	return tok.Error()
}
