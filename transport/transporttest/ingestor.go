package transporttest

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/transport"
)

// Ingestor is a stand-in for the backend that consumes the messages published
// by stations and sends them configuration requests.
type Ingestor struct {
	Broker *Broker

	m         sync.Mutex
	revisions map[string]uint32
}

// Messages returns the messages published to topic, decoded and in receipt
// order, including duplicates.
func (i *Ingestor) Messages(topic string) ([]message.Message, error) {
	var result []message.Message

	for _, p := range i.Broker.Published(topic) {
		var m message.Message
		if err := json.Unmarshal(p.Payload, &m); err != nil {
			return nil, fmt.Errorf("unable to decode payload published to %s: %w", topic, err)
		}

		result = append(result, m)
	}

	return result, nil
}

// Unique returns the messages published to topic with duplicates removed.
//
// Messages are keyed by their identifier, which is unique per station. The
// first receipt of each message determines its position.
func (i *Ingestor) Unique(topic string) ([]message.Message, error) {
	messages, err := i.Messages(topic)
	if err != nil {
		return nil, err
	}

	seen := map[uint64]struct{}{}
	var result []message.Message

	for _, m := range messages {
		if _, ok := seen[m.Header.ID]; ok {
			continue
		}

		seen[m.Header.ID] = struct{}{}
		result = append(result, m)
	}

	return result, nil
}

// SendConfig publishes a configuration request to a station.
//
// The revision must be strictly greater than the last revision sent to the
// same station, unless resend is true, in which case it must be equal to it.
func (i *Ingestor) SendConfig(
	t transport.Topics,
	revision uint32,
	config json.RawMessage,
	resend bool,
) error {
	i.m.Lock()
	defer i.m.Unlock()

	if i.revisions == nil {
		i.revisions = map[string]uint32{}
	}

	last, ok := i.revisions[t.Station]
	if ok {
		if resend && revision != last {
			return fmt.Errorf("can not resend revision %d, the last revision sent was %d", revision, last)
		}

		if !resend && revision <= last {
			return fmt.Errorf("revision %d is not greater than the last revision sent (%d)", revision, last)
		}
	}

	payload, err := json.Marshal(struct {
		Revision      uint32          `json:"revision"`
		Configuration json.RawMessage `json:"configuration"`
	}{revision, config})
	if err != nil {
		return err
	}

	if !i.Broker.Deliver(t.Config(), payload) {
		return ErrUnreachable
	}

	i.revisions[t.Station] = revision

	return nil
}
