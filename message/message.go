package message

import (
	"fmt"
	"math"
	"time"
)

var (
	// MinTimestamp is the earliest time a message may be issued or delivered,
	// 2022-01-01T00:00:00+01:00.
	MinTimestamp = time.Unix(1_640_991_600, 0).UTC()

	// MaxTimestamp is the latest time a message may be issued or delivered. It
	// is the largest value representable as a signed 4-byte unix timestamp,
	// plus one second.
	MaxTimestamp = time.Unix(2_147_483_648, 0).UTC()
)

// MaxRevision is the largest permitted configuration revision.
const MaxRevision = 2_147_483_648

// Header is the meta-data that the queue keeps about each message.
type Header struct {
	// ID is the identifier assigned to the message when it was first
	// persisted. IDs are strictly increasing per station and never reused.
	//
	// It is zero only before the message has been persisted.
	ID uint64

	// Status is the delivery status of the message.
	Status Status

	// Revision is the configuration revision that was active on the station
	// when the message was created.
	Revision uint32

	// IssuedAt is the time at which the message was created.
	IssuedAt time.Time

	// DeliveredAt is the time at which the broker acknowledged the message.
	// It is the zero-value unless Status is Delivered.
	DeliveredAt time.Time
}

// Validate returns an error if h is malformed.
func (h Header) Validate() error {
	if err := h.Status.Validate(); err != nil {
		return err
	}

	if h.Revision > MaxRevision {
		return &ValidationError{
			Field:  "revision",
			Reason: fmt.Sprintf("must not exceed %d", MaxRevision),
		}
	}

	if err := checkTimestamp("issue_timestamp", h.IssuedAt); err != nil {
		return err
	}

	if h.Status == Delivered {
		return checkTimestamp("success_timestamp", h.DeliveredAt)
	}

	if !h.DeliveredAt.IsZero() {
		return &ValidationError{
			Field:  "success_timestamp",
			Reason: fmt.Sprintf("must be empty for %s messages", h.Status),
		}
	}

	return nil
}

// Message is an element of the outbound queue.
type Message struct {
	Header Header
	Body   Body
}

// Validate returns an error if m is malformed.
func (m Message) Validate() error {
	if err := m.Header.Validate(); err != nil {
		return within("header", err)
	}

	return ValidateBody(m.Body)
}

// ValidateBody returns an error if b is malformed.
//
// Field names in the returned error are relative to the message, that is,
// prefixed with "body.".
func ValidateBody(b Body) error {
	if b == nil {
		return &ValidationError{
			Field:  "body",
			Reason: "must not be empty",
		}
	}

	if err := b.Validate(); err != nil {
		return within("body", err)
	}

	return nil
}

// Kind identifies the concrete type of a message body.
type Kind string

const (
	// StatusKind is the kind of a StatusBody.
	StatusKind Kind = "status"

	// MeasurementKind is the kind of a MeasurementBody.
	MeasurementKind Kind = "measurement"
)

// Body is the content of a message. It is implemented by StatusBody and
// MeasurementBody only.
type Body interface {
	// Kind returns the kind of the body.
	Kind() Kind

	// Validate returns an error if the body is malformed.
	Validate() error

	isBody()
}

// StatusBody is the body of a message that reports the operational status of
// the station.
type StatusBody struct {
	Severity Severity `json:"severity"`
	Subject  string   `json:"subject"`
	Details  string   `json:"details"`
}

// Kind returns StatusKind.
func (StatusBody) Kind() Kind { return StatusKind }

// Validate returns an error if b is malformed.
func (b StatusBody) Validate() error {
	if err := b.Severity.Validate(); err != nil {
		return err
	}

	if err := checkLength("subject", b.Subject, 1, 1024); err != nil {
		return err
	}

	return checkLength("details", b.Details, 1, 1024)
}

func (StatusBody) isBody() {}

// MeasurementBody is the body of a message that carries a sensor reading.
type MeasurementBody struct {
	// Timestamp is the unix time, in seconds, at which the reading was taken.
	Timestamp int64

	// Value is the sensor reading.
	Value Reading
}

// Kind returns MeasurementKind.
func (MeasurementBody) Kind() Kind { return MeasurementKind }

// Validate returns an error if b is malformed.
func (b MeasurementBody) Validate() error {
	t := time.Unix(b.Timestamp, 0)
	if err := checkTimestamp("timestamp", t); err != nil {
		return err
	}

	if b.Value == nil {
		return &ValidationError{
			Field:  "value",
			Reason: "must not be empty",
		}
	}

	if err := b.Value.Validate(); err != nil {
		return within("value", err)
	}

	return nil
}

func (MeasurementBody) isBody() {}

// Timestamp normalizes t to the precision that survives a round-trip through
// the wire format.
func Timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}

	return t.UTC().Truncate(time.Millisecond)
}

// unixSeconds returns t as fractional unix seconds.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

// fromUnixSeconds is the inverse of unixSeconds.
func fromUnixSeconds(s float64) time.Time {
	return time.UnixMilli(int64(math.Round(s * 1000))).UTC()
}

func checkTimestamp(field string, t time.Time) error {
	if t.Before(MinTimestamp) || t.After(MaxTimestamp) {
		return &ValidationError{
			Field: field,
			Reason: fmt.Sprintf(
				"must be between %s and %s, got %s",
				MinTimestamp.Format(time.RFC3339),
				MaxTimestamp.Format(time.RFC3339),
				t.UTC().Format(time.RFC3339),
			),
		}
	}

	return nil
}
