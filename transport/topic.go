package transport

import (
	"fmt"
	"regexp"

	"github.com/tum-esm/hermes/message"
)

// baseTopicPattern is the pattern that base topics must match. The empty
// string is a valid base topic.
var baseTopicPattern = regexp.MustCompile(`^(/[a-z0-9_-]+)*$`)

// Topics is the set of topics used by a single station.
type Topics struct {
	// Base is the prefix shared by the topics of all stations.
	Base string

	// Station is the station identifier.
	Station string
}

// NewTopics returns the topics for a station.
//
// It returns an error if base is not a valid base topic, or if station is not
// a valid station identifier.
func NewTopics(base, station string) (Topics, error) {
	t := Topics{base, station}
	return t, t.Validate()
}

// Validate returns an error if t is invalid.
func (t Topics) Validate() error {
	if len(t.Base) > 256 || !baseTopicPattern.MatchString(t.Base) {
		return fmt.Errorf(
			"invalid base topic %q: must match %s",
			t.Base,
			baseTopicPattern,
		)
	}

	if n := len(t.Station); n < 3 || n > 256 {
		return fmt.Errorf(
			"invalid station identifier %q: length must be between 3 and 256, got %d",
			t.Station,
			n,
		)
	}

	return nil
}

// Measurements returns the topic that measurement messages are published to.
func (t Topics) Measurements() string {
	return t.topic("measurements")
}

// Status returns the topic that status messages are published to.
func (t Topics) Status() string {
	return t.topic("status")
}

// Config returns the topic that configuration requests are received on.
func (t Topics) Config() string {
	return t.topic("config")
}

// For returns the topic that messages with the given body are published to.
func (t Topics) For(b message.Body) string {
	switch b.(type) {
	case message.StatusBody:
		return t.Status()
	case message.MeasurementBody:
		return t.Measurements()
	default:
		panic(fmt.Sprintf("unsupported body type %T", b))
	}
}

func (t Topics) topic(leaf string) string {
	return t.Base + "/" + t.Station + "/" + leaf
}
