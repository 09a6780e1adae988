package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wireHeader is the JSON representation of a Header.
type wireHeader struct {
	Identifier       *uint64  `json:"identifier"`
	Status           Status   `json:"status"`
	Revision         uint32   `json:"revision"`
	IssueTimestamp   float64  `json:"issue_timestamp"`
	SuccessTimestamp *float64 `json:"success_timestamp"`
}

// MarshalJSON returns the wire representation of h.
func (h Header) MarshalJSON() ([]byte, error) {
	w := wireHeader{
		Status:         h.Status,
		Revision:       h.Revision,
		IssueTimestamp: unixSeconds(h.IssuedAt),
	}

	if h.ID != 0 {
		id := h.ID
		w.Identifier = &id
	}

	if !h.DeliveredAt.IsZero() {
		ts := unixSeconds(h.DeliveredAt)
		w.SuccessTimestamp = &ts
	}

	return json.Marshal(w)
}

// UnmarshalJSON parses the wire representation of a header.
func (h *Header) UnmarshalJSON(data []byte) error {
	var w wireHeader
	if err := decodeStrict(data, &w); err != nil {
		return err
	}

	*h = Header{
		Status:   w.Status,
		Revision: w.Revision,
		IssuedAt: fromUnixSeconds(w.IssueTimestamp),
	}

	if w.Identifier != nil {
		h.ID = *w.Identifier
	}

	if w.SuccessTimestamp != nil {
		h.DeliveredAt = fromUnixSeconds(*w.SuccessTimestamp)
	}

	return nil
}

// wireReading is the JSON representation of a Reading.
type wireReading struct {
	Variant string          `json:"variant"`
	Data    json.RawMessage `json:"data"`
}

// wireMeasurementBody is the JSON representation of a MeasurementBody.
type wireMeasurementBody struct {
	Timestamp int64       `json:"timestamp"`
	Value     wireReading `json:"value"`
}

// MarshalJSON returns the wire representation of b.
func (b MeasurementBody) MarshalJSON() ([]byte, error) {
	if b.Value == nil {
		return nil, &ValidationError{
			Field:  "value",
			Reason: "must not be empty",
		}
	}

	data, err := json.Marshal(b.Value)
	if err != nil {
		return nil, err
	}

	return json.Marshal(wireMeasurementBody{
		Timestamp: b.Timestamp,
		Value: wireReading{
			Variant: b.Value.Variant(),
			Data:    data,
		},
	})
}

// UnmarshalJSON parses the wire representation of a measurement body.
func (b *MeasurementBody) UnmarshalJSON(data []byte) error {
	var w wireMeasurementBody
	if err := decodeStrict(data, &w); err != nil {
		return err
	}

	var r Reading

	switch w.Value.Variant {
	case "co2":
		var v CO2Reading
		if err := decodeStrict(w.Value.Data, &v); err != nil {
			return err
		}
		r = v
	case "wind":
		var v WindReading
		if err := decodeStrict(w.Value.Data, &v); err != nil {
			return err
		}
		r = v
	case "air":
		var v AirReading
		if err := decodeStrict(w.Value.Data, &v); err != nil {
			return err
		}
		r = v
	default:
		return &ValidationError{
			Field:  "value.variant",
			Reason: fmt.Sprintf("unknown reading variant %q", w.Value.Variant),
		}
	}

	*b = MeasurementBody{
		Timestamp: w.Timestamp,
		Value:     r,
	}

	return nil
}

// MarshalBody returns the wire representation of b.
func MarshalBody(b Body) ([]byte, error) {
	switch b := b.(type) {
	case StatusBody:
		return json.Marshal(b)
	case MeasurementBody:
		return json.Marshal(b)
	case nil:
		return nil, &ValidationError{
			Field:  "body",
			Reason: "must not be empty",
		}
	default:
		panic(fmt.Sprintf("unsupported body type %T", b))
	}
}

// UnmarshalBody parses the wire representation of a body of the given kind.
func UnmarshalBody(k Kind, data []byte) (Body, error) {
	switch k {
	case StatusKind:
		var b StatusBody
		err := decodeStrict(data, &b)
		return b, err
	case MeasurementKind:
		var b MeasurementBody
		err := decodeStrict(data, &b)
		return b, err
	default:
		return nil, &ValidationError{
			Field:  "kind",
			Reason: fmt.Sprintf("unknown body kind %q", k),
		}
	}
}

// KindOf infers the kind of a wire-encoded body from its fields.
func KindOf(data []byte) (Kind, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", err
	}

	if _, ok := fields["severity"]; ok {
		return StatusKind, nil
	}

	if _, ok := fields["value"]; ok {
		return MeasurementKind, nil
	}

	return "", &ValidationError{
		Field:  "body",
		Reason: "neither a status nor a measurement body",
	}
}

// wireMessage is the JSON representation of a Message.
type wireMessage struct {
	Header Header          `json:"header"`
	Body   json.RawMessage `json:"body"`
}

// MarshalJSON returns the wire representation of m.
func (m Message) MarshalJSON() ([]byte, error) {
	body, err := MarshalBody(m.Body)
	if err != nil {
		return nil, err
	}

	return json.Marshal(wireMessage{
		Header: m.Header,
		Body:   body,
	})
}

// UnmarshalJSON parses the wire representation of a message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := decodeStrict(data, &w); err != nil {
		return err
	}

	k, err := KindOf(w.Body)
	if err != nil {
		return err
	}

	b, err := UnmarshalBody(k, w.Body)
	if err != nil {
		return err
	}

	*m = Message{
		Header: w.Header,
		Body:   b,
	}

	return nil
}

// decodeStrict unmarshals data into v, rejecting any fields that v does not
// define.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
