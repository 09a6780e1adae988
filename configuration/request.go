package configuration

import (
	"encoding/json"
	"fmt"

	"github.com/tum-esm/hermes/message"
)

// Request is a configuration change requested by the backend.
type Request struct {
	// Revision is the revision of the requested configuration.
	Revision uint32 `json:"revision"`

	// Configuration is the requested configuration. Its own revision field,
	// if any, is ignored in favor of Revision.
	Configuration Config `json:"configuration"`
}

// Config returns the requested configuration, stamped with the request's
// revision.
func (r Request) Config() Config {
	c := r.Configuration
	c.Revision = r.Revision
	return c
}

// DecodeRequest parses and validates the wire representation of a
// configuration request.
//
// Fields that this version of the station does not know are ignored, so the
// backend can extend its requests without breaking older stations.
func DecodeRequest(payload []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(payload, &r); err != nil {
		return Request{}, fmt.Errorf("unable to parse configuration request: %w", err)
	}

	if r.Revision == 0 || r.Revision > message.MaxRevision {
		return Request{}, fmt.Errorf(
			"invalid configuration request: revision must be between 1 and %d, got %d",
			message.MaxRevision,
			r.Revision,
		)
	}

	if err := r.Config().Validate(); err != nil {
		return Request{}, fmt.Errorf("invalid configuration request: %w", err)
	}

	return r, nil
}
