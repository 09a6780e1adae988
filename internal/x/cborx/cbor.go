// Package cborx provides the CBOR encoding used for records held in local
// storage.
package cborx

import (
	"github.com/fxamacker/cbor/v2"
)

var (
	// encMode uses Core Deterministic Encoding (RFC 8949 §4.2), so the same
	// record always produces identical bytes.
	encMode cbor.EncMode

	// decMode accepts standard CBOR and ignores unknown fields, allowing
	// records written by newer versions to be read by older ones.
	decMode cbor.DecMode
)

func init() {
	var err error

	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano

	encMode, err = opts.EncMode()
	if err != nil {
		panic("cborx: encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("cborx: decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is a raw encoded CBOR value.
type RawMessage = cbor.RawMessage
