package mqtttransport_test

import (
	"net"
	"sync"

	"github.com/eclipse/paho.mqtt.golang/packets"
	. "github.com/onsi/gomega"
)

// broker is a minimal in-process MQTT broker. It understands just enough of
// MQTT 3.1.1 to accept connections, subscriptions and QoS 1 publishes.
type broker struct {
	listener net.Listener

	m         sync.Mutex
	sessions  map[*session]struct{}
	received  []*packets.PublishPacket
	usernames []string
	holdAcks  bool
}

type session struct {
	conn net.Conn

	m      sync.Mutex
	subs   map[string]struct{}
	nextID uint16
}

func startBroker() *broker {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).ShouldNot(HaveOccurred())

	b := &broker{
		listener: l,
		sessions: map[*session]struct{}{},
	}

	go b.accept()

	return b
}

// URL returns the URL that clients use to connect to the broker.
func (b *broker) URL() string {
	return "tcp://" + b.listener.Addr().String()
}

// Close stops the broker and drops every connection.
func (b *broker) Close() {
	b.listener.Close()
	b.DropConnections()
}

// DropConnections closes every client connection without a DISCONNECT.
func (b *broker) DropConnections() {
	b.m.Lock()
	defer b.m.Unlock()

	for s := range b.sessions {
		s.conn.Close()
		delete(b.sessions, s)
	}
}

// HoldAcks stops the broker from sending PUBACK for publishes it receives.
func (b *broker) HoldAcks() {
	b.m.Lock()
	defer b.m.Unlock()

	b.holdAcks = true
}

// Received returns the payloads published to the broker on topic.
func (b *broker) Received(topic string) []string {
	b.m.Lock()
	defer b.m.Unlock()

	var payloads []string
	for _, p := range b.received {
		if p.TopicName == topic {
			payloads = append(payloads, string(p.Payload))
		}
	}

	return payloads
}

// Usernames returns the username presented by each connection, in order.
func (b *broker) Usernames() []string {
	b.m.Lock()
	defer b.m.Unlock()

	return append([]string(nil), b.usernames...)
}

// IsSubscribed returns true if a connected client is subscribed to topic.
func (b *broker) IsSubscribed(topic string) bool {
	b.m.Lock()
	defer b.m.Unlock()

	for s := range b.sessions {
		s.m.Lock()
		_, ok := s.subs[topic]
		s.m.Unlock()

		if ok {
			return true
		}
	}

	return false
}

// Publish sends payload with QoS 1 to every client subscribed to topic.
func (b *broker) Publish(topic string, payload []byte) {
	b.m.Lock()
	defer b.m.Unlock()

	for s := range b.sessions {
		s.m.Lock()
		_, ok := s.subs[topic]
		s.nextID++
		id := s.nextID
		s.m.Unlock()

		if !ok {
			continue
		}

		p := packets.NewControlPacket(packets.Publish).(*packets.PublishPacket)
		p.Qos = 1
		p.TopicName = topic
		p.MessageID = id
		p.Payload = payload

		s.write(p)
	}
}

func (b *broker) accept() {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			return
		}

		s := &session{
			conn: conn,
			subs: map[string]struct{}{},
		}

		b.m.Lock()
		b.sessions[s] = struct{}{}
		b.m.Unlock()

		go b.serve(s)
	}
}

func (b *broker) serve(s *session) {
	defer func() {
		s.conn.Close()

		b.m.Lock()
		delete(b.sessions, s)
		b.m.Unlock()
	}()

	for {
		cp, err := packets.ReadPacket(s.conn)
		if err != nil {
			return
		}

		switch p := cp.(type) {
		case *packets.ConnectPacket:
			b.m.Lock()
			b.usernames = append(b.usernames, p.Username)
			b.m.Unlock()

			s.write(packets.NewControlPacket(packets.Connack))

		case *packets.SubscribePacket:
			s.m.Lock()
			for _, t := range p.Topics {
				s.subs[t] = struct{}{}
			}
			s.m.Unlock()

			ack := packets.NewControlPacket(packets.Suback).(*packets.SubackPacket)
			ack.MessageID = p.MessageID
			ack.ReturnCodes = p.Qoss
			s.write(ack)

		case *packets.PublishPacket:
			b.m.Lock()
			b.received = append(b.received, p)
			hold := b.holdAcks
			b.m.Unlock()

			if p.Qos == 1 && !hold {
				ack := packets.NewControlPacket(packets.Puback).(*packets.PubackPacket)
				ack.MessageID = p.MessageID
				s.write(ack)
			}

		case *packets.PingreqPacket:
			s.write(packets.NewControlPacket(packets.Pingresp))

		case *packets.DisconnectPacket:
			return
		}
	}
}

func (s *session) write(p packets.ControlPacket) {
	s.m.Lock()
	defer s.m.Unlock()

	// Write errors surface as a read error in serve().
	p.Write(s.conn) // nolint:errcheck
}
