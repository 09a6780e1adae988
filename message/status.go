package message

import "fmt"

// Status is the delivery status of a queued message.
//
// Statuses are ordered. A message only ever moves to a later status.
type Status int

const (
	// Pending is the status of a message that has been persisted but not yet
	// handed to the broker.
	Pending Status = iota + 1

	// Sent is the status of a message that the transport has accepted for
	// publishing, but for which the broker has not yet acknowledged receipt.
	Sent

	// Delivered is the status of a message that the broker has acknowledged.
	// Delivered messages are immutable.
	Delivered
)

// Validate returns an error if s is not one of the defined statuses.
func (s Status) Validate() error {
	switch s {
	case Pending, Sent, Delivered:
		return nil
	default:
		return &ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("unknown status (%d)", int(s)),
		}
	}
}

// Precedes returns true if s comes strictly before next in the message
// lifecycle, meaning a transition from s to next is permitted.
func (s Status) Precedes(next Status) bool {
	return s.Validate() == nil &&
		next.Validate() == nil &&
		s < next
}

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Sent:
		return "sent"
	case Delivered:
		return "delivered"
	default:
		return fmt.Sprintf("<invalid status %d>", int(s))
	}
}

// MarshalText returns the wire representation of s.
func (s Status) MarshalText() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return []byte(s.String()), nil
}

// UnmarshalText parses the wire representation of a status.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = Pending
	case "sent":
		*s = Sent
	case "delivered":
		*s = Delivered
	default:
		return &ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("must be one of pending, sent or delivered, got %q", text),
		}
	}

	return nil
}

// Severity is the severity of a status message.
type Severity string

const (
	// Info is the severity of purely informational status messages.
	Info Severity = "info"

	// Warning is the severity of status messages describing a degraded, but
	// still functional, station.
	Warning Severity = "warning"

	// Error is the severity of status messages describing a failure.
	Error Severity = "error"
)

// Validate returns an error if s is not one of the defined severities.
func (s Severity) Validate() error {
	switch s {
	case Info, Warning, Error:
		return nil
	default:
		return &ValidationError{
			Field:  "severity",
			Reason: fmt.Sprintf("must be one of info, warning or error, got %q", string(s)),
		}
	}
}
