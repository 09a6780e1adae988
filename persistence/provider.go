package persistence

import (
	"context"
	"errors"
)

// ErrDataStoreLocked indicates that an application has attempted to open a
// data-store for a station that is already open elsewhere.
var ErrDataStoreLocked = errors.New("data store is locked")

// Provider is an interface used by the station to persist and retrieve its
// outbound queue and configuration revision.
type Provider interface {
	// Open returns a data-store for a specific station.
	//
	// station is the station identifier.
	//
	// Data stores are opened for exclusive use. If another process has already
	// opened this station's data-store, ErrDataStoreLocked is returned.
	Open(ctx context.Context, station string) (DataStore, error)
}
